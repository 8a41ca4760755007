package bot

// telegramMessageLimit is the maximum number of characters Telegram accepts
// in a single sendMessage call.
const telegramMessageLimit = 4096

// splitMessage splits text into ordered segments of at most limit runes
// each. Nothing is trimmed or reflowed, so concatenating the segments
// reproduces the input exactly. Text within the limit comes back as a
// single segment.
func splitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = telegramMessageLimit
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	parts := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}

	return parts
}
