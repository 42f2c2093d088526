package domain

import "time"

const ProviderGoogle = "google"

// ExternalIdentity is what the credential decoder reads out of an OAuth credential.
type ExternalIdentity struct {
	Name      string
	Email     string
	SubjectID string
}

// IdentityLink records a linked external identity. SyntheticPassword is never shown to the user.
type IdentityLink struct {
	Provider          string
	ExternalID        string
	Name              string
	Email             string
	LinkedAt          time.Time
	SyntheticPassword string `json:"-"`
}
