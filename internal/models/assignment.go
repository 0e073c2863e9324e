package models

// Assignment binds a shortcode to a filename in the remote registry.
// It is always read back from the registry and never cached locally.
type Assignment struct {
	Shortcode string `json:"shortcode"`
	Filename  string `json:"image"`
}
