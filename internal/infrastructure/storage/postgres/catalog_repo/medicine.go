package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/internal/infrastructure/storage/postgres"
)

const medicineTable = "cat_medicines"

// MedicineRepo implements medicine.Repository.
type MedicineRepo struct {
	*BaseCatalogRepo[*medicine.Medicine]
}

// NewMedicineRepo creates a new medicine repository.
func NewMedicineRepo() *MedicineRepo {
	return &MedicineRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*medicine.Medicine](
			medicineTable,
			postgres.ExtractDBColumns[medicine.Medicine](),
			func() *medicine.Medicine { return &medicine.Medicine{} },
		),
	}
}

// FindByBarcode retrieves a medicine by barcode.
func (r *MedicineRepo) FindByBarcode(ctx context.Context, barcode string) (*medicine.Medicine, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	m, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("medicine", barcode)
		}
		return nil, err
	}
	return m, nil
}
