package core

type (
	// HostUser is the identity the host platform asserts in its signed
	// launch parameters. There is no account system of our own; the
	// subject is whatever stable id the host hands us.
	HostUser struct {
		Subject   string `json:"subject"`
		Username  string `json:"username,omitempty"`
		Name      string `json:"name,omitempty"`
		AvatarURL string `json:"avatarUrl,omitempty"`
		Locale    string `json:"locale,omitempty"`
	}
)
