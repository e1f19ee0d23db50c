package offline

import (
	"io"

	"carelink/internal/utils"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverAssets lists the same-origin assets an index.html references.
func DiscoverAssets(index io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(index)
	if err != nil {
		return nil, err
	}
	return utils.LocalAssets(doc), nil
}
