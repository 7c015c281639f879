package observability

import (
	"log/slog"
	"os"
	"regexp"

	"github.com/m-mizutani/masq"
)

// newHomeRedactor builds a slog ReplaceAttr chain that masks the operator's
// home directory out of logged string values. Chunk and remote temp paths
// are logged at debug level and often live under $HOME; there's no reason a
// shared log stream should carry the operator's local username.
func newHomeRedactor() func(groups []string, a slog.Attr) slog.Attr {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return func(_ []string, a slog.Attr) slog.Attr { return a }
	}
	pattern := regexp.MustCompile(regexp.QuoteMeta(home))
	return masq.New(masq.WithRegex(pattern))
}
