package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pieshop-backend/pkg/db/models"
	"github.com/angelmondragon/pieshop-backend/pkg/enums"
)

type seedItem struct {
	name        string
	description string
	price       string
	category    enums.ItemCategory
	imageURL    string
}

var pieCatalog = []seedItem{
	{"Apple pie", "Tender pie with apples and cinnamon", "42", enums.ItemCategorySweet, "https://papapek.by/ru/files/megacat/image/1000/0/1723187267.jpg"},
	{"Chocolate pie", "Chocolate pie with cherries", "42", enums.ItemCategorySweet, "https://img.iamcook.ru/2020/upl/recipes/cat/u-ca1d10cf0d9bf81ce037e90a6ca68ffe.JPG"},
	{"Blueberry pie", "Blueberry pie with vanilla cream", "42", enums.ItemCategorySweet, "https://cdn.lifehacker.ru/wp-content/uploads/2024/06/shutterstock_273361589_1_1719222634_e1719222675383.jpg"},
	{"Strawberry pie", "Fresh strawberry pie with custard", "42", enums.ItemCategorySweet, "https://img.iamcook.ru/old/upl/recipes/zen/u-650af671451806e83b8fcad26950b672.jpg"},
	{"Lemon pie", "Lemon filling under meringue", "16.80", enums.ItemCategorySweet, "https://www.chefmarket.ru/blog/wp-content/uploads/2023/05/legkij-i-osvezhajushhij-limonnyj-pirog-s-merengoj-2000x1200.jpg"},
	{"Caramel pie", "Caramel filling with nuts", "42", enums.ItemCategorySweet, "https://img1.russianfood.com/dycontent/images_upl/630/big_629840.jpg"},
	{"Cottage cheese pie", "Sweet curd filling with raisins", "42", enums.ItemCategorySweet, "https://www.povarenok.ru/data/cache/2016aug/15/38/1676613_79677-710x550x.jpg"},
	{"Meat pie", "Beef and mushroom pie", "57", enums.ItemCategorySavory, "https://cooklikemary.ru/sites/default/files/styles/width_700/public/img_9164-2-2.jpg?itok=rV9p9Z8i"},
	{"Chicken pie", "Chicken and vegetable pie", "52", enums.ItemCategorySavory, "https://www.patee.ru/r/x6/0b/f3/be/640m.jpg"},
	{"Cheese pie", "Three-cheese pie", "19.90", enums.ItemCategorySavory, "https://vkusvill.ru/upload/resize/401903/401903_606x362x90_c.webp"},
	{"Salmon pie", "Salmon and spinach pie", "89", enums.ItemCategorySavory, "https://img1.russianfood.com/dycontent/images_upl/451/big_450634.jpg"},
	{"Vegetable pie", "Seasonal vegetables and herbs", "62", enums.ItemCategorySavory, "https://img.7dach.ru/image/600/04/59/69/2015/10/02/440fa2.jpg"},
	{"Mushroom pie", "Forest mushrooms and onion", "59", enums.ItemCategorySavory, "https://img1.russianfood.com/dycontent/images_upl/11/big_10992.jpg"},
	{"Potato pie", "Potato and green onion pie", "49", enums.ItemCategorySavory, "https://prostokvashino.ru/upload/resize_cache/iblock/4a9/800_800_0/4a9f1458c80718affdc8485f9f951d7d.jpg"},
}

// SeedCatalog inserts the pie catalog when the items table is empty and
// returns the number of rows written. Seeded rows carry no promotion; the
// cron worker assigns one on its first cycle.
func SeedCatalog(ctx context.Context, conn *gorm.DB) (int, error) {
	var count int64
	if err := conn.WithContext(ctx).Model(&models.Item{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	base := time.Now().UTC()
	rows := make([]models.Item, 0, len(pieCatalog))
	for i, seed := range pieCatalog {
		url := seed.imageURL
		rows = append(rows, models.Item{
			Name:        seed.name,
			Description: seed.description,
			Price:       decimal.RequireFromString(seed.price),
			Category:    seed.category,
			ImageURL:    &url,
			Discount:    decimal.Zero,
			// stable insertion order for list_items
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := conn.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("insert items: %w", err)
	}
	return len(rows), nil
}
