package service

// Service describes one rentable verification target at the provider.
type Service struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// serviceCatalog mirrors the provider's published service list. Prices
// are the provider's base rates; the configured max price still caps
// what a rental may cost.
var serviceCatalog = []Service{
	{Code: "ac", Name: "DoorDash", Price: 0.05},
	{Code: "ub", Name: "Uber", Price: 0.08},
	{Code: "tu", Name: "Lyft", Price: 0.08},
	{Code: "ds", Name: "Discord", Price: 0.05},
	{Code: "go", Name: "Google", Price: 0.08},
	{Code: "tg", Name: "Telegram", Price: 0.03},
	{Code: "wa", Name: "WhatsApp", Price: 0.12},
	{Code: "fb", Name: "Facebook", Price: 0.10},
	{Code: "ig", Name: "Instagram", Price: 0.08},
	{Code: "tw", Name: "Twitter", Price: 0.15},
	{Code: "li", Name: "LinkedIn", Price: 0.20},
}

// ListServices returns the catalog; the slice is a copy.
func ListServices() []Service {
	out := make([]Service, len(serviceCatalog))
	copy(out, serviceCatalog)
	return out
}

// LookupService returns the catalog entry for code, if present.
func LookupService(code string) (Service, bool) {
	for _, s := range serviceCatalog {
		if s.Code == code {
			return s, true
		}
	}
	return Service{}, false
}
