package application

import catalogdomain "github.com/nochphanet/khqr-shopbot/internal/catalog/domain"

type CatalogReader interface {
	Find(productID int) (catalogdomain.Product, bool)
}
