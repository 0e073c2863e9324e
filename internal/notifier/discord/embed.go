package discord

// Embed represents a Discord embed object.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"` // ISO8601 timestamp
	Color       int             `json:"color,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
	Image       *EmbedImage     `json:"image,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Author      *EmbedAuthor    `json:"author,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
}

// EmbedFooter represents the footer of an embed.
type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedImage represents the image of an embed.
type EmbedImage struct {
	URL string `json:"url"` // only http(s) and attachments
}

// EmbedThumbnail represents the thumbnail of an embed.
type EmbedThumbnail struct {
	URL string `json:"url"`
}

// EmbedAuthor represents the author of an embed.
type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedField is a name/value pair shown in an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// WebhookPayload represents the JSON payload sent to a Discord webhook.
type WebhookPayload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`   // Override the default webhook username
	AvatarURL string  `json:"avatar_url,omitempty"` // Override the default webhook avatar
	Embeds    []Embed `json:"embeds,omitempty"`
}

// webhookMessage is the subset of the message object returned with ?wait=true
type webhookMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id,omitempty"`
}
