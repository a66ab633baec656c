package provider

// VerifyFunc verifies a delivery for a caller-defined provider.
type VerifyFunc func(d *Delivery) Result

type defined struct {
	name   string
	verify VerifyFunc
}

// Define adapts a function into a Provider so callers can plug their own
// schemes in next to the built-in ones. It panics on an empty name or nil
// function, which are programming errors.
func Define(name string, verify VerifyFunc) Provider {
	if name == "" {
		panic("provider: Define with empty name")
	}
	if verify == nil {
		panic("provider: Define with nil VerifyFunc")
	}
	return &defined{name: name, verify: verify}
}

func (p *defined) Name() string { return p.name }

func (p *defined) Verify(d *Delivery) Result { return p.verify(d) }
