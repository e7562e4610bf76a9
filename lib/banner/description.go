package banner

import (
	"encoding/json"
	"strings"
)

// StripWrapper removes exactly one leading <tag> and trailing </tag> from
// a description body. Whitespace around the body is not part of the
// description and is trimmed before the wrapper is matched, whitespace
// inside the wrapper is kept. Some installations send the html as a json
// string, it is decoded first. Bodies without the wrapper are returned
// trimmed.
func StripWrapper(body, tag string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, `"`) {
		var decoded string
		if json.Unmarshal([]byte(body), &decoded) == nil {
			body = strings.TrimSpace(decoded)
		}
	}

	opening := "<" + tag + ">"
	closing := "</" + tag + ">"
	if len(body) >= len(opening)+len(closing) &&
		strings.HasPrefix(body, opening) &&
		strings.HasSuffix(body, closing) {
		return body[len(opening) : len(body)-len(closing)]
	}
	return body
}
