package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"schooldash/internal/domain"
	"schooldash/internal/sources/payload"
)

// rowsOf flattens a search response into one map per row. It accepts the
// columnar search shape ({"response":{"metaData":{"columns":[...]},
// "results":[[...]]}}) as well as plain lists of objects, bare or under
// "response" or "data".
func rowsOf(body []byte) ([]map[string]any, error) {
	v, err := payload.Decode(body)
	if err != nil {
		return nil, err
	}
	if m := payload.Object(v); m != nil {
		if inner := payload.Pick(m, "response", "data"); inner != nil {
			v = inner
		}
	}

	switch t := v.(type) {
	case []any:
		return objects(t), nil
	case map[string]any:
		if results, ok := t["results"].([]any); ok {
			return columnar(t, results), nil
		}
		if len(t) == 0 {
			return nil, nil
		}
		return []map[string]any{t}, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected response shape %T", v)
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m := payload.Object(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func columnar(resp map[string]any, results []any) []map[string]any {
	var names []string
	if meta := payload.Object(resp["metaData"]); meta != nil {
		cols, _ := meta["columns"].([]any)
		for _, col := range cols {
			names = append(names, payload.String(payload.Object(col)["name"]))
		}
	}

	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		switch row := r.(type) {
		case map[string]any:
			out = append(out, row)
		case []any:
			m := make(map[string]any, len(row))
			for i, cell := range row {
				if i < len(names) && names[i] != "" {
					m[names[i]] = cell
				}
			}
			out = append(out, m)
		}
	}
	return out
}

func customerFrom(r map[string]any) domain.Customer {
	return domain.Customer{
		ContactID: payload.String(payload.Pick(r, "contactId", "id")),
		Email:     payload.String(payload.Pick(r, "primaryEmail", "email", "emailAddress")),
		FirstName: payload.String(payload.Pick(r, "firstName", "first_name")),
		LastName:  payload.String(payload.Pick(r, "lastName", "last_name")),
	}
}

func orderFrom(r map[string]any) domain.OrderRecord {
	return domain.OrderRecord{
		OrderNumber:  payload.String(payload.Pick(r, "orderNumber", "orderId", "id", "reference")),
		PlacedOn:     payload.String(payload.Pick(r, "placedOn", "createdOn")),
		CustomerName: payload.String(payload.Pick(r, "customerName", "contactName")),
		TotalValue:   amount(payload.Pick(r, "totalValue", "total", "orderValue")),
		OrderStatus:  payload.String(payload.Pick(r, "orderStatus", "orderStatusName", "orderStatusId", "status")),
	}
}

// amount parses a money value. Nested {"total": ...} objects are unwrapped;
// anything unparseable counts as zero.
func amount(v any) decimal.Decimal {
	if m := payload.Object(v); m != nil {
		v = payload.Pick(m, "total", "value", "amount")
	}
	s := strings.TrimSpace(payload.String(v))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func contactIDs(customers []domain.Customer) []string {
	seen := make(map[string]bool, len(customers))
	var ids []string
	for _, c := range customers {
		if c.ContactID == "" || seen[c.ContactID] {
			continue
		}
		seen[c.ContactID] = true
		ids = append(ids, c.ContactID)
	}
	return ids
}

func summarize(customers []domain.Customer, orders []domain.OrderRecord) domain.OrdersData {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalValue)
	}
	return domain.OrdersData{
		Customers:   customers,
		Orders:      orders,
		TotalOrders: len(orders),
		TotalValue:  total,
	}
}
