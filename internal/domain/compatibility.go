package domain

// redCellDonors lists, per recipient type, the donor types whose red cells it can receive.
var redCellDonors = map[string][]string{
	"O-":  {"O-"},
	"O+":  {"O-", "O+"},
	"A-":  {"O-", "A-"},
	"A+":  {"O-", "O+", "A-", "A+"},
	"B-":  {"O-", "B-"},
	"B+":  {"O-", "O+", "B-", "B+"},
	"AB-": {"O-", "A-", "B-", "AB-"},
	"AB+": {"O-", "O+", "A-", "A+", "B-", "B+", "AB-", "AB+"},
}

// CompatibleDonorTypes returns the donor blood types a recipient of bloodType can receive.
func CompatibleDonorTypes(bloodType string) []string {
	return redCellDonors[bloodType]
}

func CanDonateTo(donor, recipient string) bool {
	for _, t := range redCellDonors[recipient] {
		if t == donor {
			return true
		}
	}
	return false
}
