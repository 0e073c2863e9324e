package discord

import (
	"time"
)

// EmbedBuilder helps in constructing Embed objects.
type EmbedBuilder struct {
	embed     Embed
	validator *EmbedValidator
}

// NewEmbedBuilder creates a new Discord embed builder
func NewEmbedBuilder() *EmbedBuilder {
	return &EmbedBuilder{
		validator: NewEmbedValidator(),
	}
}

// WithTitle sets the embed title
func (eb *EmbedBuilder) WithTitle(title string) *EmbedBuilder {
	eb.embed.Title = title
	return eb
}

// WithDescription sets the embed description
func (eb *EmbedBuilder) WithDescription(description string) *EmbedBuilder {
	eb.embed.Description = description
	return eb
}

// WithURL makes the title a link
func (eb *EmbedBuilder) WithURL(url string) *EmbedBuilder {
	eb.embed.URL = url
	return eb
}

// WithTimestamp sets the embed timestamp
func (eb *EmbedBuilder) WithTimestamp(timestamp time.Time) *EmbedBuilder {
	eb.embed.Timestamp = timestamp.UTC().Format(time.RFC3339)
	return eb
}

// WithColor sets the embed color
func (eb *EmbedBuilder) WithColor(color int) *EmbedBuilder {
	eb.embed.Color = color
	return eb
}

// WithFooter sets the embed footer
func (eb *EmbedBuilder) WithFooter(text, iconURL string) *EmbedBuilder {
	eb.embed.Footer = &EmbedFooter{Text: text, IconURL: iconURL}
	return eb
}

// WithAuthor sets the embed author. An empty name leaves the author unset.
func (eb *EmbedBuilder) WithAuthor(name, url, iconURL string) *EmbedBuilder {
	if name == "" {
		return eb
	}
	eb.embed.Author = &EmbedAuthor{Name: name, URL: url, IconURL: iconURL}
	return eb
}

// WithImage sets the large image
func (eb *EmbedBuilder) WithImage(url string) *EmbedBuilder {
	eb.embed.Image = &EmbedImage{URL: url}
	return eb
}

// WithThumbnail sets the thumbnail
func (eb *EmbedBuilder) WithThumbnail(url string) *EmbedBuilder {
	eb.embed.Thumbnail = &EmbedThumbnail{URL: url}
	return eb
}

// AddField adds a field to the embed
func (eb *EmbedBuilder) AddField(name, value string, inline bool) *EmbedBuilder {
	eb.embed.Fields = append(eb.embed.Fields, EmbedField{Name: name, Value: value, Inline: inline})
	return eb
}

// Build validates and returns the embed
func (eb *EmbedBuilder) Build() (Embed, error) {
	if err := eb.validator.ValidateEmbed(eb.embed); err != nil {
		return Embed{}, err
	}
	return eb.embed, nil
}

// PayloadBuilder helps in constructing WebhookPayload objects.
type PayloadBuilder struct {
	payload WebhookPayload
}

// NewPayloadBuilder creates a new instance of PayloadBuilder.
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{}
}

// WithContent sets the plain text content.
func (b *PayloadBuilder) WithContent(content string) *PayloadBuilder {
	b.payload.Content = content
	return b
}

// WithUsername overrides the webhook's display name.
func (b *PayloadBuilder) WithUsername(username string) *PayloadBuilder {
	b.payload.Username = username
	return b
}

// WithAvatarURL overrides the webhook's avatar.
func (b *PayloadBuilder) WithAvatarURL(avatarURL string) *PayloadBuilder {
	b.payload.AvatarURL = avatarURL
	return b
}

// AddEmbed appends an embed.
func (b *PayloadBuilder) AddEmbed(embed Embed) *PayloadBuilder {
	b.payload.Embeds = append(b.payload.Embeds, embed)
	return b
}

// Build returns the constructed payload.
func (b *PayloadBuilder) Build() WebhookPayload {
	return b.payload
}
