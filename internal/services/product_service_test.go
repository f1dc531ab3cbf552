package services

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoqhq/stoq-backend/internal/dto"
)

func newProductService(t *testing.T) *ProductService {
	t.Helper()
	return NewProductService(newTestDB(t))
}

func TestProductCreate_GeneratesSKUFromName(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{
		Name: "Red Mug", Stock: 10, CostPrice: 3.5, SalePrice: 7,
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RED\d{6}$`), product.SKU)
	assert.Equal(t, 10, product.Stock)
}

func TestProductCreate_SKUPrefixEdgeCases(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
	}{
		{"Red Mug", "RED"},
		{"ab", "ABX"},
		{"7 Keys", "XXK"},
		{"  tea  ", "TEA"},
		{"名刺入れ", "XXX"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.prefix, skuPrefix(tc.name), "name %q", tc.name)
	}
}

func TestProductCreate_ExplicitSKU(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{
		Name: "Blue Mug", SKU: "BLU-001", SalePrice: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "BLU-001", product.SKU)

	_, err = svc.Create(owner, &dto.CreateProductRequest{
		Name: "Another Mug", SKU: "BLU-001", SalePrice: 5,
	})
	assert.ErrorIs(t, err, ErrSKUTaken)
}

func TestProductCreate_GeneratedSKUsStayUnique(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Red Mug", SalePrice: 1})
		require.NoError(t, err)
		assert.False(t, seen[product.SKU], "duplicate sku %s", product.SKU)
		seen[product.SKU] = true
	}
}

func TestProductCreate_Validation(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	_, err := svc.Create(owner, &dto.CreateProductRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", Stock: -1})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: -1})
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestProductGet_OwnerScoped(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: 1})
	require.NoError(t, err)

	_, err = svc.Get(owner, product.ID)
	assert.NoError(t, err)

	_, err = svc.Get(uuid.New(), product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Get(owner, uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductList_SearchAndPagination(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	names := []string{"Red Mug", "Blue Mug", "Green Plate"}
	for _, n := range names {
		_, err := svc.Create(owner, &dto.CreateProductRequest{Name: n, SalePrice: 1})
		require.NoError(t, err)
	}
	_, err := svc.Create(uuid.New(), &dto.CreateProductRequest{Name: "Red Mug", SalePrice: 1})
	require.NoError(t, err)

	list, err := svc.List(owner, 1, 20, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)

	list, err = svc.List(owner, 1, 20, "mug")
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)

	list, err = svc.List(owner, 2, 2, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.Len(t, list.Products, 1)
}

func TestProductUpdate_PartialAndSKUImmutable(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{
		Name: "Mug", SKU: "MUG-001", Stock: 5, CostPrice: 2, SalePrice: 4,
	})
	require.NoError(t, err)

	newName := "Big Mug"
	newPrice := 6.0
	updated, err := svc.Update(owner, product.ID, &dto.UpdateProductRequest{
		Name: &newName, SalePrice: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", updated.Name)
	assert.Equal(t, 6.0, updated.SalePrice)
	assert.Equal(t, 5, updated.Stock)
	assert.Equal(t, "MUG-001", updated.SKU)

	bad := -1
	_, err = svc.Update(owner, product.ID, &dto.UpdateProductRequest{Stock: &bad})
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestProductDelete(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(uuid.New(), product.ID), ErrProductNotFound)
	require.NoError(t, svc.Delete(owner, product.ID))
	assert.ErrorIs(t, svc.Delete(owner, product.ID), ErrProductNotFound)
}

func TestAdjustStock(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", Stock: 5, SalePrice: 1})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(owner, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Stock)

	updated, err = svc.AdjustStock(owner, product.ID, -8)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)

	_, err = svc.AdjustStock(owner, product.ID, -1)
	assert.ErrorIs(t, err, ErrStockUnderflow)

	updated, err = svc.AdjustStock(owner, product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
}

func TestProductImages_PrimaryInvariant(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: 1})
	require.NoError(t, err)

	first, err := svc.AddImage(owner, product.ID, "https://cdn/img1.jpg", "products/img1.jpg")
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)
	assert.Equal(t, 0, first.Position)

	second, err := svc.AddImage(owner, product.ID, "https://cdn/img2.jpg", "products/img2.jpg")
	require.NoError(t, err)
	assert.False(t, second.IsPrimary)
	assert.Equal(t, 1, second.Position)

	require.NoError(t, svc.SetPrimaryImage(owner, product.ID, second.ID))

	loaded, err := svc.Get(owner, product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Images, 2)
	primaries := 0
	for _, img := range loaded.Images {
		if img.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, img.ID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestAddImage_PositionsStayUniqueAfterDelete(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: 1})
	require.NoError(t, err)

	first, err := svc.AddImage(owner, product.ID, "https://cdn/a.jpg", "products/a.jpg")
	require.NoError(t, err)
	_, err = svc.AddImage(owner, product.ID, "https://cdn/b.jpg", "products/b.jpg")
	require.NoError(t, err)

	_, err = svc.DeleteImage(owner, product.ID, first.ID)
	require.NoError(t, err)

	third, err := svc.AddImage(owner, product.ID, "https://cdn/c.jpg", "products/c.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, third.Position)

	loaded, err := svc.Get(owner, product.ID)
	require.NoError(t, err)
	positions := map[int]bool{}
	for _, img := range loaded.Images {
		assert.False(t, positions[img.Position], "duplicate position %d", img.Position)
		positions[img.Position] = true
	}
}

func TestDeleteImage_PromotesNextPrimary(t *testing.T) {
	svc := newProductService(t)
	owner := uuid.New()

	product, err := svc.Create(owner, &dto.CreateProductRequest{Name: "Mug", SalePrice: 1})
	require.NoError(t, err)

	first, err := svc.AddImage(owner, product.ID, "https://cdn/a.jpg", "products/a.jpg")
	require.NoError(t, err)
	second, err := svc.AddImage(owner, product.ID, "https://cdn/b.jpg", "products/b.jpg")
	require.NoError(t, err)

	key, err := svc.DeleteImage(owner, product.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "products/a.jpg", key)

	loaded, err := svc.Get(owner, product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Images, 1)
	assert.Equal(t, second.ID, loaded.Images[0].ID)
	assert.True(t, loaded.Images[0].IsPrimary)

	_, err = svc.DeleteImage(owner, product.ID, first.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)
}
