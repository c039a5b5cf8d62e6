package memory

import (
	"context"
	"slices"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

type CatalogRepository struct {
	s *Store
}

func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		out = make([]catalog.Product, len(st.products))
		copy(out, st.products)
		return nil
	})
	return out, err
}

func (r *CatalogRepository) FindByName(ctx context.Context, name string) (catalog.Product, error) {
	var found catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Name == name {
				found = p
				return nil
			}
		}
		return catalog.ErrProductNotFound
	})
	return found, err
}

func (r *CatalogRepository) Insert(ctx context.Context, np catalog.NewProduct) (catalog.Product, error) {
	var created catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Name == np.Name {
				return catalog.ErrDuplicateName
			}
		}
		st.nextProductID++
		created = catalog.Product{
			ID:          st.nextProductID,
			Name:        np.Name,
			Description: np.Description,
			Price:       np.Price,
			Stock:       np.Stock,
			CreatedAt:   r.s.now(),
		}
		st.products = append(st.products, created)
		return nil
	})
	return created, err
}

func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		out = make([]catalog.Product, 0, len(ids))
		for _, p := range st.products {
			if slices.Contains(ids, p.ID) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
