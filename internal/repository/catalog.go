package repository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Category коллекция витрины
type Category struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	keywords    []string
	exclude     bool
}

// Match входит ли товар в коллекцию. Accessories - всё, что не попало в остальные.
func (c Category) Match(p domain.Product) bool {
	name := strings.ToLower(p.Name)
	hit := false
	for _, k := range c.keywords {
		if strings.Contains(name, k) {
			hit = true
			break
		}
	}
	if c.exclude {
		return !hit
	}
	return hit
}

var categories = []Category{
	{Slug: "latest-iphones", Title: "Latest iPhones", Description: "Discover the newest iPhone models with cutting-edge features.", keywords: []string{"iphone"}},
	{Slug: "mac-macbook", Title: "Mac & MacBook", Description: "Experience the power and performance of Apple's laptops and desktops.", keywords: []string{"macbook", "imac", "mac mini"}},
	{Slug: "ipad-collection", Title: "iPad Collection", Description: "Explore the versatile world of iPad for work, play, and creativity.", keywords: []string{"ipad"}},
	{Slug: "apple-watch", Title: "Apple Watch", Description: "Stay connected, active, and healthy with the latest Apple Watch.", keywords: []string{"watch"}},
	{Slug: "accessories", Title: "Accessories", Description: "Enhance your Apple experience with our range of accessories.", keywords: []string{"iphone", "mac", "ipad", "watch"}, exclude: true},
}

// Categories все коллекции
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryBySlug поиск коллекции
func CategoryBySlug(slug string) (Category, bool) {
	for _, c := range categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}

// Catalog статический список товаров магазина
func Catalog() []domain.Product {
	return []domain.Product{
		{
			ID:          "iphone-15-pro",
			Name:        "iPhone 15 Pro",
			Description: "The ultimate iPhone. A17 Pro chip. A customizable Action button. The most powerful iPhone camera system. And USB-C with USB 3 for superfast transfer speeds.",
			Price:       decimal.NewFromInt(999),
			Images:      []string{"https://placehold.co/600x600", "https://placehold.co/600x600", "https://placehold.co/600x600"},
			Specs:       domain.ProductSpecs{Storage: "128GB", Color: "Natural Titanium", Display: "6.1-inch Super Retina XDR display"},
			Features:    []string{"Dynamic Island", "A17 Pro Chip", "Pro Camera System", "USB-C Connector"},
			Stock:       50,
		},
		{
			ID:          "iphone-15",
			Name:        "iPhone 15",
			Description: "iPhone 15 brings you Dynamic Island, a 48MP Main camera, and USB-C, all in a durable color-infused glass and aluminum design.",
			Price:       decimal.NewFromInt(799),
			Images:      []string{"https://placehold.co/600x600", "https://placehold.co/600x600", "https://placehold.co/600x600"},
			Specs:       domain.ProductSpecs{Storage: "128GB", Color: "Blue", Display: "6.1-inch Super Retina XDR display"},
			Features:    []string{"Dynamic Island", "A16 Bionic Chip", "Advanced dual-camera system", "USB-C Connector"},
			Stock:       75,
		},
		{
			ID:          "iphone-14",
			Name:        "iPhone 14",
			Description: "A huge leap in battery life. A new, more advanced dual-camera system. A15 Bionic, the fastest chip in a smartphone.",
			Price:       decimal.NewFromInt(699),
			Images:      []string{"https://placehold.co/600x600", "https://placehold.co/600x600"},
			Specs:       domain.ProductSpecs{Storage: "128GB", Color: "Midnight", Display: "6.1-inch Super Retina XDR display"},
			Features:    []string{"A15 Bionic Chip", "Dual-camera system", "Emergency SOS via satellite", "Ceramic Shield"},
			Stock:       100,
		},
		{
			ID:          "iphone-se",
			Name:        "iPhone SE",
			Description: "Serious power. Serious value. A15 Bionic chip and 5G. A superstar camera. All in a pocket-friendly 4.7-inch design.",
			Price:       decimal.NewFromInt(429),
			Images:      []string{"https://placehold.co/600x600"},
			Specs:       domain.ProductSpecs{Storage: "64GB", Color: "Starlight", Display: "4.7-inch Retina HD display"},
			Features:    []string{"A15 Bionic Chip", "5G capable", "Advanced single-camera system", "Home Button with Touch ID"},
			Stock:       200,
		},
	}
}

// SeedCatalog заполняет репозиторий статическим каталогом
func SeedCatalog(ctx context.Context, repo ProductRepository) error {
	for _, p := range Catalog() {
		p := p
		if err := repo.Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
