// Package server exposes configured webhook endpoints over HTTP.
//
// Each endpoint is a POST route wrapped in signature verification. Nothing
// reaches the accept handler unless its provider verified the raw body.
//
// # Request Flow
//
//  1. HTTP POST arrives at a configured path
//  2. Body buffered up to max_body_size (413 if larger)
//  3. Provider verifies headers and raw body
//  4. 401 problem+json on failure, naming the reason
//  5. 202 Accepted with a delivery_id on success
//  6. The outcome is published on the events hub
//
// # Other Routes
//
//	GET /healthz          liveness
//	GET /events?since=N   recent outcomes, bearer token guarded when configured
//	GET /events/stream    the same outcomes as server-sent events
//
// # Example Usage
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		return err
//	}
//	srvCfg, err := server.FromConfig(cfg)
//	if err != nil {
//		return err
//	}
//	srv := server.New(srvCfg, events.NewHub(cfg.Service.EventsBuffer), logger)
//	return srv.Start(ctx)
package server
