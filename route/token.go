package route

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	M "github.com/sagernet/sing/common/metadata"
)

var tokenPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^.+-\d+$`)
})

// ParseEgressToken decodes an address-port route token. The address may itself contain
// dashes; the port follows the last one.
func ParseEgressToken(token string) (M.Socksaddr, bool) {
	if !tokenPattern().MatchString(token) {
		return M.Socksaddr{}, false
	}
	index := strings.LastIndexByte(token, '-')
	port, err := strconv.ParseUint(token[index+1:], 10, 16)
	if err != nil || port == 0 {
		return M.Socksaddr{}, false
	}
	address := strings.TrimSuffix(strings.TrimPrefix(token[:index], "["), "]")
	destination := M.ParseSocksaddrHostPort(address, uint16(port))
	if !destination.IsValid() {
		return M.Socksaddr{}, false
	}
	return destination, true
}
