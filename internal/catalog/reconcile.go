package catalog

import (
	"context"
	"slices"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
)

// reconcile re-reads a saved entry. The gateway may acknowledge writes it
// never applies; the local copy stays authoritative either way and the
// listing is never touched here.
func (vm *ViewModel) reconcile(local domain.CatalogEntry) {
	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), vm.reconcileTimeout)
		defer cancel()

		remote, err := vm.gateway.GetProduct(ctx, local.ID)
		if err != nil {
			vm.log.Warn("reconcile fetch failed", "product_id", local.ID, "error", err)
			return
		}
		diff := editedFieldsDiff(local, remote)
		if len(diff) == 0 {
			vm.log.Debug("reconcile matched", "product_id", local.ID)
			return
		}
		detail := "gateway differs on " + strings.Join(diff, ",")
		vm.log.Info("reconcile mismatch, keeping local copy", "product_id", local.ID, "fields", diff)
		vm.journal.Record(ctx, journal.NewEvent(journal.CatalogReconcileMismatch, local.ID, detail))
	}()
}

// editedFieldsDiff names the user-editable fields that differ.
func editedFieldsDiff(local, remote domain.CatalogEntry) []string {
	var diff []string
	check := func(name string, equal bool) {
		if !equal {
			diff = append(diff, name)
		}
	}
	check("title", local.Title == remote.Title)
	check("description", local.Description == remote.Description)
	check("category", local.Category == remote.Category)
	check("brand", local.Brand == remote.Brand)
	check("price", local.Price == remote.Price)
	check("discountPercentage", local.DiscountPercentage == remote.DiscountPercentage)
	check("rating", local.Rating == remote.Rating)
	check("stock", local.Stock == remote.Stock)
	check("thumbnail", local.Thumbnail == remote.Thumbnail)
	check("images", slices.Equal(local.Images, remote.Images))
	return diff
}
