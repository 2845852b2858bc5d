package domain

import (
	"reflect"
	"slices"
)

// AllCategories selects the unfiltered listing.
const AllCategories = "all"

type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type Meta struct {
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	QRCode    string `json:"qrCode,omitempty"`
}

// CatalogEntry mirrors a product as served by the remote gateway.
type CatalogEntry struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Stock              int      `json:"stock"`
	Rating             float64  `json:"rating"`
	Images             []string `json:"images,omitempty"`
	Thumbnail          string   `json:"thumbnail,omitempty"`

	Brand                string      `json:"brand,omitempty"`
	SKU                  string      `json:"sku,omitempty"`
	Weight               float64     `json:"weight,omitempty"`
	Dimensions           *Dimensions `json:"dimensions,omitempty"`
	Tags                 []string    `json:"tags,omitempty"`
	WarrantyInformation  string      `json:"warrantyInformation,omitempty"`
	ShippingInformation  string      `json:"shippingInformation,omitempty"`
	AvailabilityStatus   string      `json:"availabilityStatus,omitempty"`
	ReturnPolicy         string      `json:"returnPolicy,omitempty"`
	MinimumOrderQuantity int         `json:"minimumOrderQuantity,omitempty"`
	Meta                 *Meta       `json:"meta,omitempty"`
}

// Clone returns a structural copy that shares no slices or pointers with e.
func (e CatalogEntry) Clone() CatalogEntry {
	c := e
	c.Images = slices.Clone(e.Images)
	c.Tags = slices.Clone(e.Tags)
	if e.Dimensions != nil {
		d := *e.Dimensions
		c.Dimensions = &d
	}
	if e.Meta != nil {
		m := *e.Meta
		c.Meta = &m
	}
	return c
}

func (e CatalogEntry) Equal(other CatalogEntry) bool {
	return reflect.DeepEqual(e, other)
}

// DisplayImage is the image a cart line shows: the thumbnail, or the first gallery image.
func (e CatalogEntry) DisplayImage() string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	if len(e.Images) > 0 {
		return e.Images[0]
	}
	return ""
}

type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// IsAllCategories reports whether category selects the unfiltered listing.
func IsAllCategories(category string) bool {
	return category == "" || category == AllCategories
}
