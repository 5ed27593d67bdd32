package catalog

import "sync"

// Cache is the console-wide view of applications and products seen so far.
// Entries are only ever added or flagged, never rewritten wholesale, so a
// reader holding an older slice stays consistent.
type Cache struct {
	mu       sync.RWMutex
	apps     []App
	appIdx   map[string]int
	products []Product
	prodIdx  map[string]int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		appIdx:  make(map[string]int),
		prodIdx: make(map[string]int),
	}
}

// AddApps records apps that are not yet known. Known apps keep their entry,
// except that an onboarded flag is never lost.
func (c *Cache) AddApps(apps ...App) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range apps {
		if a.ID == "" {
			continue
		}
		if i, ok := c.appIdx[a.ID]; ok {
			if a.IsOnboarded {
				c.apps[i].IsOnboarded = true
			}
			continue
		}
		c.appIdx[a.ID] = len(c.apps)
		c.apps = append(c.apps, a)
	}
}

// AddProducts records products that are not yet known.
func (c *Cache) AddProducts(products ...Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.addProductLocked(p)
	}
}

func (c *Cache) addProductLocked(p Product) {
	if p.ID == "" {
		return
	}
	if _, ok := c.prodIdx[p.ID]; ok {
		return
	}
	c.prodIdx[p.ID] = len(c.products)
	c.products = append(c.products, p)
}

// AppendAssociation applies a completed onboarding: every listed app becomes
// onboarded and gains the product, and the product becomes known.
func (c *Cache) AppendAssociation(apps []App, product Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addProductLocked(product)
	for _, a := range apps {
		i, ok := c.appIdx[a.ID]
		if !ok {
			i = len(c.apps)
			c.appIdx[a.ID] = i
			c.apps = append(c.apps, a)
		}
		entry := &c.apps[i]
		entry.IsOnboarded = true
		if !hasProduct(entry.Products, product.ID) {
			entry.Products = append(entry.Products, product)
		}
	}
}

func hasProduct(products []Product, id string) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// App returns the cached app with the given id.
func (c *Cache) App(id string) (App, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.appIdx[id]
	if !ok {
		return App{}, false
	}
	return c.apps[i], true
}

// Apps returns a copy of every cached app in insertion order.
func (c *Cache) Apps() []App {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]App, len(c.apps))
	copy(out, c.apps)
	return out
}

// Products returns a copy of every cached product in insertion order.
func (c *Cache) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Annotate sets IsOnboarded on apps the cache knows to be onboarded. Search
// results from the CMDB can lag behind onboardings made in this console.
func (c *Cache) Annotate(apps []App) []App {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]App, len(apps))
	for i, a := range apps {
		if j, ok := c.appIdx[a.ID]; ok && c.apps[j].IsOnboarded {
			a.IsOnboarded = true
		}
		out[i] = a
	}
	return out
}
