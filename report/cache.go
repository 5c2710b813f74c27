package report

import (
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/gattbrowser"
)

// Cache is a JSON file of discovered profiles keyed by peer address.
type Cache struct {
	filename string
	lock     sync.RWMutex
}

func NewCache(filename string) *Cache {
	return &Cache{filename: filename}
}

// Store saves p for mac. An existing profile is only overwritten when
// replace is set.
func (c *Cache) Store(mac gattbrowser.Addr, p Profile, replace bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	cache, err := c.loadExisting()
	if err != nil {
		return err
	}

	if _, ok := cache[mac.String()]; ok && !replace {
		return fmt.Errorf("cache already contains gatt db for %s", mac)
	}
	cache[mac.String()] = p

	return c.storeCache(cache)
}

func (c *Cache) Load(mac gattbrowser.Addr) (Profile, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	cache, err := c.loadExisting()
	if err != nil {
		return Profile{}, err
	}

	p, ok := cache[mac.String()]
	if !ok {
		return Profile{}, fmt.Errorf("gatt db for %s not found in cache", mac)
	}
	return p, nil
}

func (c *Cache) Clear() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return os.Remove(c.filename)
}

func (c *Cache) loadExisting() (map[string]Profile, error) {
	in, err := os.ReadFile(c.filename)
	if os.IsNotExist(err) {
		return map[string]Profile{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cache map[string]Profile
	if err := jsoniter.Unmarshal(in, &cache); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = map[string]Profile{}
	}
	return cache, nil
}

func (c *Cache) storeCache(cache map[string]Profile) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filename, out, 0644)
}
