package funding

import (
	"context"

	"github.com/shopspring/decimal"

	domain "p2p-credit-origination/internal/domain/funding"
)

type Usecase struct{ repo domain.Repository }

func NewUsecase(r domain.Repository) *Usecase { return &Usecase{repo: r} }

func (u *Usecase) Get(ctx context.Context, fundingID string) (*FundingDTO, error) {
	f, err := u.repo.GetByFundingID(ctx, fundingID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(f)
	return &dto, nil
}

// Portfolio lists a funder's fundings, with the total deployed.
func (u *Usecase) Portfolio(ctx context.Context, funderID string) (*PortfolioDTO, error) {
	fs, err := u.repo.ListByFunderID(ctx, funderID)
	if err != nil {
		return nil, err
	}
	out := &PortfolioDTO{FunderID: funderID, Total: decimal.Zero, Fundings: make([]FundingDTO, 0, len(fs))}
	for i := range fs {
		out.Fundings = append(out.Fundings, toDTO(&fs[i]))
		out.Total = out.Total.Add(fs[i].Amount)
	}
	out.Count = len(out.Fundings)
	return out, nil
}

func toDTO(f *domain.Funding) FundingDTO {
	dto := FundingDTO{
		FundingID: f.FundingID,
		LoanID:    f.LoanID,
		Source:    string(f.Source),
		FunderID:  f.FunderID,
		Amount:    f.Amount,
		FundedAt:  f.FundedAt,
	}
	if f.AllocationID != nil {
		dto.AllocationID = *f.AllocationID
	}
	return dto
}
