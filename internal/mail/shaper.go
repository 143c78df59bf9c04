package mail

import (
	"strings"
)

const (
	mediaTypeHTML = "text/html"
)

// FormatAddresses renders addresses as "Name <email>", or just the email when
// there is no display name, joined with ", ".
func FormatAddresses(addrs []Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			parts = append(parts, a.Name+" <"+a.Email+">")
		} else {
			parts = append(parts, a.Email)
		}
	}
	return strings.Join(parts, ", ")
}

// ShapeSummaries maps raw records to summaries, keeping the backend order.
func ShapeSummaries(msgs []RawMessage) []MessageSummary {
	out := make([]MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageSummary{
			ID:         m.ID,
			Sender:     FormatAddresses(m.From),
			Subject:    m.Subject,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return out
}

// ShapeContent reduces a message body to text. Plain-text parts win over
// markup; when they are absent or blank, the first HTML part is converted.
// A message without body content yields an empty Text.
func ShapeContent(m RawMessage) MessageContent {
	var plain []string
	var html string
	foundHTML := false

	seen := make(map[string]bool)
	parts := make([]BodyPart, 0, len(m.TextBody)+len(m.HTMLBody))
	parts = append(parts, m.TextBody...)
	parts = append(parts, m.HTMLBody...)

	for _, p := range parts {
		if seen[p.PartID] {
			continue
		}
		seen[p.PartID] = true

		value, ok := m.BodyValues[p.PartID]
		if !ok {
			continue
		}
		switch mt := mediaType(p.Type); {
		case mt == mediaTypeHTML:
			if !foundHTML {
				html = value
				foundHTML = true
			}
		case strings.HasPrefix(mt, "text/") || mt == "":
			plain = append(plain, value)
		}
	}

	content := MessageContent{ID: m.ID}
	text := strings.TrimSpace(strings.Join(plain, "\n"))
	switch {
	case text != "":
		content.Text = text
	case foundHTML:
		content.Text = HTMLToText(html)
	}
	return content
}

// mediaType lowercases t and strips any parameters.
func mediaType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
