package biz

import (
	"context"

	"clickpipe/internal/conf"
	"clickpipe/pkg/shortcode"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewLinkUsecase, NewCodeGenerator)

// UnitOfWork runs fn inside a store transaction carried by ctx.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// CodeGenerator proposes short codes. Proposals may collide.
type CodeGenerator interface {
	Generate(destination string) string
}

// NewCodeGenerator builds the MD5 based generator from link settings.
func NewCodeGenerator(c *conf.Link) CodeGenerator {
	return shortcode.New(c.CodeLength)
}
