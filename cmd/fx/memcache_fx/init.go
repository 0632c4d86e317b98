package memcache_fx

import (
	"go.uber.org/fx"
	mem "townsquare/pkg/memcache"
)

var Module = fx.Provide(provideResolvedNames)

func provideResolvedNames() mem.ResolvedNameStore {
	return mem.NewResolvedNames()
}
