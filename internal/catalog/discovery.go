package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oggyb/miahui/internal/model"
)

const discoveryPrefix = "disc-"

// Discovery builds n feed cards by cycling through the directory. Each card
// gets its own id and avatar but still resolves to its source entry.
func Discovery(n int) []model.Counterpart {
	out := make([]model.Counterpart, 0, n)
	for i := 0; i < n; i++ {
		c := counterparts[i%len(counterparts)]
		c.Tags = append([]string(nil), c.Tags...)
		c.ID = fmt.Sprintf("%s%d", discoveryPrefix, i)
		c.AvatarRef = fmt.Sprintf("https://picsum.photos/seed/disc%d/300/400", i)
		out = append(out, c)
	}
	return out
}

func discoverySource(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, discoveryPrefix)
	if !ok {
		return "", false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return "", false
	}
	return counterparts[i%len(counterparts)].ID, true
}
