package redis

import (
	"fmt"

	"github.com/kirinyoku/meetly/internal/domain"
)

const ns = "meetly:v1"

func KeyEntityDetail(kind domain.Kind, id string) string {
	return fmt.Sprintf("%s:%s:detail:%s", ns, kind, id)
}

// KeyEntityList is the cached list of kind for one filter under list
// generation gen.
func KeyEntityList(kind domain.Kind, gen int64, filterKey string) string {
	return fmt.Sprintf("%s:%s:list:g%d:%s", ns, kind, gen, filterKey)
}

// KeyEntityListGen holds the current list generation of kind. Bumping it
// orphans every cached list of the kind.
func KeyEntityListGen(kind domain.Kind) string {
	return fmt.Sprintf("%s:%s:listgen", ns, kind)
}

func KeyRateLimit(scope, id string, bucket int64) string {
	return fmt.Sprintf("%s:rl:%s:%s:%d", ns, scope, id, bucket)
}

func KeyIdemCheckout(userID, idemKey string) string {
	return fmt.Sprintf("%s:idem:checkout:%s:%s", ns, userID, idemKey)
}

func ChannelEntitiesChanged() string {
	return ns + ":entities:changed"
}
