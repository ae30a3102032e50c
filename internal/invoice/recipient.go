package invoice

import "strings"

const maxRecipientLen = 512

// ValidateRecipient performs a structural check on an RGB recipient string.
// Full consignment-level validation happens on the node at transfer time;
// here we only reject values that could never be a recipient.
func ValidateRecipient(recipient string) error {
	if recipient == "" || len(recipient) > maxRecipientLen {
		return ErrInvalidRecipient
	}
	var rest string
	switch {
	case strings.HasPrefix(recipient, "utxob:"):
		rest = recipient[len("utxob:"):]
	case strings.HasPrefix(recipient, "rgb:"):
		rest = recipient[len("rgb:"):]
	default:
		return ErrInvalidRecipient
	}
	if rest == "" {
		return ErrInvalidRecipient
	}
	for _, r := range rest {
		if !isRecipientRune(r) {
			return ErrInvalidRecipient
		}
	}
	return nil
}

func isRecipientRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == ':' || r == '$' || r == '!':
		return true
	}
	return false
}
