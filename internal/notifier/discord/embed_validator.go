package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aleister1102/imgsync/internal/common"
)

// EmbedValidator checks embeds against Discord's documented limits
type EmbedValidator struct{}

// NewEmbedValidator creates a new embed validator
func NewEmbedValidator() *EmbedValidator {
	return &EmbedValidator{}
}

// ValidateEmbed validates a Discord embed
func (ev *EmbedValidator) ValidateEmbed(embed Embed) error {
	if len(embed.Title) > 256 {
		return common.NewValidationError("title", embed.Title, "title cannot exceed 256 characters")
	}

	if len(embed.Description) > 4096 {
		return common.NewValidationError("description", embed.Description, "description cannot exceed 4096 characters")
	}

	if len(embed.Fields) > 25 {
		return common.NewValidationError("fields", len(embed.Fields), "cannot have more than 25 fields")
	}

	for i, field := range embed.Fields {
		if field.Name == "" {
			return common.NewValidationError("field_name", field.Name, fmt.Sprintf("field %d name cannot be empty", i))
		}
		if field.Value == "" {
			return common.NewValidationError("field_value", field.Value, fmt.Sprintf("field %d value cannot be empty", i))
		}
		if len(field.Name) > 256 {
			return common.NewValidationError("field_name", field.Name, fmt.Sprintf("field %d name cannot exceed 256 characters", i))
		}
		if len(field.Value) > 1024 {
			return common.NewValidationError("field_value", field.Value, fmt.Sprintf("field %d value cannot exceed 1024 characters", i))
		}
	}

	if embed.Footer != nil && len(embed.Footer.Text) > 2048 {
		return common.NewValidationError("footer_text", embed.Footer.Text, "footer text cannot exceed 2048 characters")
	}

	if embed.Author != nil && len(embed.Author.Name) > 256 {
		return common.NewValidationError("author_name", embed.Author.Name, "author name cannot exceed 256 characters")
	}

	if embed.Color < 0 || embed.Color > 0xFFFFFF {
		return common.NewValidationError("color", embed.Color, "color must be a 24-bit RGB value")
	}

	return nil
}

// ParseColor turns "03b2f8", "#03b2f8" or "0x03b2f8" into an embed color
func ParseColor(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || v > 0xFFFFFF {
		return 0, common.NewValidationError("embed_color", s, "expected a 6 digit hex color")
	}
	return int(v), nil
}
