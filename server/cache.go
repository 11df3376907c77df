package server

import (
	"image"
	"sync"

	"github.com/chaos-io/cleanlens/clean"
)

const maxCachedImages = 4

// imageCache 按资源 id 缓存解码后的图片，拖动滑块时不用反复解码
type imageCache struct {
	mu     sync.Mutex
	images map[string]image.Image
}

func newImageCache() *imageCache {
	return &imageCache{images: make(map[string]image.Image)}
}

func (c *imageCache) get(a *clean.Asset) (image.Image, error) {
	c.mu.Lock()
	img, ok := c.images[a.ID]
	c.mu.Unlock()
	if ok {
		return img, nil
	}

	img, err := a.Decode()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.images) >= maxCachedImages {
		c.images = make(map[string]image.Image)
	}
	c.images[a.ID] = img
	c.mu.Unlock()
	return img, nil
}

func (c *imageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func (c *imageCache) clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}
