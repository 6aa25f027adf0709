package provider

import "fmt"

// DefaultProfile is the profile name used when none is given
const DefaultProfile = "default"

type credentialKind int

const (
	kindUnset credentialKind = iota
	kindAmbient
	kindNamedProfile
)

// Credentials selects how a session authenticates: either the ambient
// credential chain of the environment, or a locally stored named profile.
// Build one with Ambient or NamedProfile; the zero value selects nothing.
type Credentials struct {
	kind    credentialKind
	profile string
}

// Ambient selects the environment's default credential chain
// (environment variables, instance/workload identity, ...).
func Ambient() Credentials {
	return Credentials{kind: kindAmbient}
}

// NamedProfile selects a locally stored profile. An empty name means
// DefaultProfile.
func NamedProfile(name string) Credentials {
	if name == "" {
		name = DefaultProfile
	}
	return Credentials{kind: kindNamedProfile, profile: name}
}

// IsAmbient reports whether the ambient credential chain is selected
func (c Credentials) IsAmbient() bool {
	return c.kind == kindAmbient
}

// Profile returns the profile name and true for named-profile credentials
func (c Credentials) Profile() (string, bool) {
	if c.kind != kindNamedProfile {
		return "", false
	}
	return c.profile, true
}

// Valid reports whether a selection was made
func (c Credentials) Valid() bool {
	return c.kind != kindUnset
}

func (c Credentials) String() string {
	switch c.kind {
	case kindAmbient:
		return "ambient"
	case kindNamedProfile:
		return fmt.Sprintf("profile:%s", c.profile)
	default:
		return "unset"
	}
}
