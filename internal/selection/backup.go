package selection

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Backup is a secondary, session scoped copy of the last selection. It
// survives the in-memory tracker being recreated and is cleared once taken.
type Backup interface {
	Save(session, text string)
	Take(session string) (string, bool)
	Clear(session string)
}

// CacheBackup stores selection backups in an expiring in-memory cache.
type CacheBackup struct {
	c *cache.Cache
}

func NewCacheBackup(ttl time.Duration) *CacheBackup {
	return &CacheBackup{c: cache.New(ttl, 2*ttl)}
}

func (b *CacheBackup) Save(session, text string) {
	b.c.SetDefault(backupKey(session), text)
}

func (b *CacheBackup) Take(session string) (string, bool) {
	key := backupKey(session)
	v, ok := b.c.Get(key)
	if !ok {
		return "", false
	}
	b.c.Delete(key)
	text, ok := v.(string)
	return text, ok && text != ""
}

func (b *CacheBackup) Clear(session string) {
	b.c.Delete(backupKey(session))
}

func backupKey(session string) string {
	return "selection:" + session
}
