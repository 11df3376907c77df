package editor

import "context"

// Passthrough 原样返回输入，离线演示和测试用
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Name() string {
	return ProviderPassthrough
}

func (p *Passthrough) Edit(ctx context.Context, img Image) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	data := make([]byte, len(img.Data))
	copy(data, img.Data)
	return Image{Data: data, MimeType: img.MimeType}, nil
}
