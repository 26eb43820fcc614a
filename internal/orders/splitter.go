package orders

import (
	"sort"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// SubOrderDraft is the part of a cart that one business fulfils.
type SubOrderDraft struct {
	BusinessID    string
	Items         []domain.OrderItem
	SubtotalCents int64
}

// Lines returns the cart lines covered by the draft, for releasing stock.
func (d SubOrderDraft) Lines() []domain.CartLine {
	lines := make([]domain.CartLine, len(d.Items))
	for i, item := range d.Items {
		lines[i] = domain.CartLine{ListingID: item.ListingID, Quantity: item.Quantity}
	}
	return lines
}

// Split groups reserved cart lines by the business that owns each listing.
// Items keep their cart order within a group. Lines without a snapshot are
// dropped.
func Split(lines []domain.CartLine, snapshots []domain.PriceSnapshot) map[string]SubOrderDraft {
	bySnapshot := make(map[string]domain.PriceSnapshot, len(snapshots))
	for _, s := range snapshots {
		bySnapshot[s.ListingID] = s
	}

	drafts := make(map[string]SubOrderDraft)
	for _, line := range lines {
		snap, ok := bySnapshot[line.ListingID]
		if !ok {
			continue
		}

		item := domain.OrderItem{
			ListingID:      line.ListingID,
			Name:           snap.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: snap.UnitPriceCents,
		}

		draft := drafts[snap.BusinessID]
		draft.BusinessID = snap.BusinessID
		draft.Items = append(draft.Items, item)
		draft.SubtotalCents += item.TotalCents()
		drafts[snap.BusinessID] = draft
	}

	return drafts
}

// BusinessIDs returns the draft keys in ascending order.
func BusinessIDs(drafts map[string]SubOrderDraft) []string {
	ids := make([]string, 0, len(drafts))
	for id := range drafts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
