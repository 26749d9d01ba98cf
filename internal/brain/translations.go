package brain

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// LanguageTranslations is the body of GET /translations/by-language/{code}.
type LanguageTranslations struct {
	LanguageCode string            `json:"language_code"`
	Translations map[string]string `json:"translations"`
}

func (c *Client) TranslationsByLanguage(ctx context.Context, code string) (map[string]string, error) {
	var resp LanguageTranslations
	if err := c.do(ctx, fiber.MethodGet, "/translations/by-language/"+url.PathEscape(code), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Translations == nil {
		resp.Translations = map[string]string{}
	}
	return resp.Translations, nil
}

// Languages lists the language codes that have translations.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	var codes []string
	if err := c.do(ctx, fiber.MethodGet, "/translations/languages", nil, nil, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}
