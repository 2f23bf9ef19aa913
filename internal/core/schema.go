package core

// schema.go is the single source of truth for the lead CSV layout.
//
// The column order below is the export order. It is kept stable so that
// exported files stay diffable between releases; new columns go at the end.

import (
	"strings"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

var columns = []Column{
	// Identity and workflow
	col("Lead ID", "id", FieldText, func(l *lead.Lead) any { return &l.ID }),
	col("Name", "name", FieldText, func(l *lead.Lead) any { return &l.Name }),
	col("Age", "age", FieldInt, func(l *lead.Lead) any { return &l.Age }),
	col("Job", "job", FieldText, func(l *lead.Lead) any { return &l.Job }),
	enumCol("Status", "status", lead.StatusValues(), func(l *lead.Lead) any { return &l.Status }),
	col("Bank", "bank", FieldText, func(l *lead.Lead) any { return &l.Bank }),
	enumCol("Visit Type", "visitType", lead.VisitTypeValues(), func(l *lead.Lead) any { return &l.VisitType }),
	col("Assigned To", "assignedTo", FieldText, func(l *lead.Lead) any { return &l.AssignedTo }),
	col("Instructions", "instructions", FieldText, func(l *lead.Lead) any { return &l.Instructions }),
	col("Has Co-Applicant", "hasCoApplicant", FieldBool, func(l *lead.Lead) any { return &l.HasCoApplicant }),
	col("Co-Applicant Name", "coApplicantName", FieldText, func(l *lead.Lead) any { return &l.CoApplicantName }),

	// Address
	enumCol("Address Type", "address.type", lead.AddressTypeValues(), func(l *lead.Lead) any { return &l.Address.Type }),
	col("Street", "address.street", FieldText, func(l *lead.Lead) any { return &l.Address.Street }),
	col("City", "address.city", FieldText, func(l *lead.Lead) any { return &l.Address.City }),
	col("District", "address.district", FieldText, func(l *lead.Lead) any { return &l.Address.District }),
	col("State", "address.state", FieldText, func(l *lead.Lead) any { return &l.Address.State }),
	col("Pincode", "address.pincode", FieldText, func(l *lead.Lead) any { return &l.Address.Pincode }),

	// Employment
	col("Company", "additionalDetails.company", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.Company }),
	col("Designation", "additionalDetails.designation", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.Designation }),
	col("Work Experience", "additionalDetails.workExperience", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.WorkExperience }),

	// Property
	col("Property Type", "additionalDetails.propertyType", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.PropertyType }),
	col("Ownership Status", "additionalDetails.ownershipStatus", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.OwnershipStatus }),
	col("Property Age", "additionalDetails.propertyAge", FieldInt, func(l *lead.Lead) any { return &l.AdditionalDetails.PropertyAge }),

	// Income
	col("Monthly Income", "additionalDetails.monthlyIncome", FieldNumeric, func(l *lead.Lead) any { return &l.AdditionalDetails.MonthlyIncome }),
	col("Annual Income", "additionalDetails.annualIncome", FieldNumeric, func(l *lead.Lead) any { return &l.AdditionalDetails.AnnualIncome }),
	col("Other Income", "additionalDetails.otherIncome", FieldNumeric, func(l *lead.Lead) any { return &l.AdditionalDetails.OtherIncome }),

	// Personal
	col("Father Name", "additionalDetails.fatherName", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.FatherName }),
	col("Mother Name", "additionalDetails.motherName", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.MotherName }),
	col("Gender", "additionalDetails.gender", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.Gender }),
	col("Date of Birth", "additionalDetails.dateOfBirth", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.DateOfBirth }),

	// Loan and product
	col("Loan Amount", "additionalDetails.loanAmount", FieldNumeric, func(l *lead.Lead) any { return &l.AdditionalDetails.LoanAmount }),
	col("Loan Type", "additionalDetails.loanType", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.LoanType }),
	col("Lead Type", "additionalDetails.leadType", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.LeadType }),
	col("Lead Type ID", "additionalDetails.leadTypeId", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.LeadTypeID }),
	col("Bank Product", "additionalDetails.bankProduct", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.BankProduct }),
	col("Bank Branch", "additionalDetails.bankBranch", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.BankBranch }),
	col("Agency File No", "additionalDetails.agencyFileNo", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.AgencyFileNo }),
	col("Application Barcode", "additionalDetails.applicationBarcode", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.ApplicationBarcode }),
	col("Case ID", "additionalDetails.caseId", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.CaseID }),
	col("Scheme Description", "additionalDetails.schemeDesc", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.SchemeDesc }),
	col("Additional Comments", "additionalDetails.additionalComments", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.AdditionalComments }),

	// Vehicle
	col("Vehicle Brand Name", "additionalDetails.vehicleBrandName", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.VehicleBrandName }),
	col("Vehicle Brand ID", "additionalDetails.vehicleBrandId", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.VehicleBrandID }),
	col("Vehicle Model Name", "additionalDetails.vehicleModelName", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.VehicleModelName }),
	col("Vehicle Model ID", "additionalDetails.vehicleModelId", FieldText, func(l *lead.Lead) any { return &l.AdditionalDetails.VehicleModelID }),

	// Co-applicant
	coCol("Co-Applicant Age", "additionalDetails.coApplicant.age", FieldInt, func(c *lead.CoApplicant) any { return &c.Age }),
	coCol("Co-Applicant Phone", "additionalDetails.coApplicant.phone", FieldText, func(c *lead.CoApplicant) any { return &c.Phone }),
	coCol("Co-Applicant Email", "additionalDetails.coApplicant.email", FieldText, func(c *lead.CoApplicant) any { return &c.Email }),
	coCol("Co-Applicant Relation", "additionalDetails.coApplicant.relation", FieldText, func(c *lead.CoApplicant) any { return &c.Relation }),
	coCol("Co-Applicant Occupation", "additionalDetails.coApplicant.occupation", FieldText, func(c *lead.CoApplicant) any { return &c.Occupation }),

	// Tracking
	col("Verification Date", "verificationDate", FieldDate, func(l *lead.Lead) any { return &l.VerificationDate }),
	col("Created At", "createdAt", FieldDate, func(l *lead.Lead) any { return &l.CreatedAt }),
}

// headerAliases maps spellings seen in bank and agency spreadsheets to
// canonical paths. Keys are lowercase.
var headerAliases = map[string]string{
	"leadid":          "id",
	"lead no":         "id",
	"applicant name":  "name",
	"customer name":   "name",
	"occupation":      "job",
	"agent":           "assignedTo",
	"agent id":        "assignedTo",
	"assigned agent":  "assignedTo",
	"address":         "address.street",
	"pin code":        "address.pincode",
	"pin":             "address.pincode",
	"postal code":     "address.pincode",
	"zip":             "address.pincode",
	"zip code":        "address.pincode",
	"father's name":   "additionalDetails.fatherName",
	"mother's name":   "additionalDetails.motherName",
	"dob":             "additionalDetails.dateOfBirth",
	"agency file no.": "additionalDetails.agencyFileNo",
	"case no":         "additionalDetails.caseId",
	"remarks":         "additionalDetails.additionalComments",
	"comments":        "additionalDetails.additionalComments",
}

// minPartialMatch is the shortest header text tried against the partial
// matcher; shorter text would match almost anything.
const minPartialMatch = 3

var (
	byHeader = make(map[string]int, len(columns))
	byPath   = make(map[string]int, len(columns))
)

func init() {
	for i, c := range columns {
		byHeader[strings.ToLower(c.Header)] = i
		byPath[strings.ToLower(c.Path)] = i
	}
}

func col(header, path string, typ FieldType, ref func(*lead.Lead) any) Column {
	return Column{
		Header: header,
		Path:   path,
		Type:   typ,
		field:  func(l *lead.Lead, _ bool) any { return ref(l) },
	}
}

func enumCol(header, path string, values []string, ref func(*lead.Lead) any) Column {
	c := col(header, path, FieldEnum, ref)
	c.EnumValues = values
	return c
}

// coCol builds a column backed by the optional co-applicant sub-record.
func coCol(header, path string, typ FieldType, ref func(*lead.CoApplicant) any) Column {
	return Column{
		Header: header,
		Path:   path,
		Type:   typ,
		field: func(l *lead.Lead, create bool) any {
			co := l.AdditionalDetails.CoApplicant
			if co == nil {
				if !create {
					return nil
				}
				co = &lead.CoApplicant{}
				l.AdditionalDetails.CoApplicant = co
			}
			return ref(co)
		},
	}
}

// Columns returns the ordered column definitions.
func Columns() []Column {
	return append([]Column(nil), columns...)
}

// Headers returns the canonical header row in export order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

// PathFor returns the field path for a canonical header (case-insensitive).
func PathFor(header string) (string, bool) {
	i, ok := byHeader[strings.ToLower(strings.TrimSpace(header))]
	if !ok {
		return "", false
	}
	return columns[i].Path, true
}

// ColumnByPath returns the column for a field path (case-insensitive).
func ColumnByPath(path string) (Column, bool) {
	i, ok := byPath[strings.ToLower(path)]
	if !ok {
		return Column{}, false
	}
	return columns[i], true
}

// matchKind records how a header was resolved.
type matchKind int

const (
	matchNone    matchKind = iota
	matchExact             // canonical header, path or alias
	matchPartial           // closest canonical header on word boundaries
)

// ResolveHeader maps header text from an uploaded file to a field path.
//
// Matching is tried in order: exact header (case-insensitive), exact path,
// known alias, then partial match against the canonical headers. When nothing
// matches, the cleaned header text itself is returned with ok=false so the
// caller can keep the value under its own name.
func ResolveHeader(raw string) (path string, ok bool) {
	path, kind := resolveHeader(raw)
	return path, kind != matchNone
}

func resolveHeader(raw string) (string, matchKind) {
	h := CleanHeader(raw)
	key := strings.ToLower(h)
	if key == "" {
		return "", matchNone
	}

	if i, found := byHeader[key]; found {
		return columns[i].Path, matchExact
	}
	if i, found := byPath[key]; found {
		return columns[i].Path, matchExact
	}
	if p, found := headerAliases[key]; found {
		return p, matchExact
	}
	if i, found := partialMatch(key); found {
		return columns[i].Path, matchPartial
	}
	return h, matchNone
}

// partialMatch finds the canonical header that contains key, or is contained
// in it, on word boundaries. The closest length wins; ties go to the earlier
// column.
func partialMatch(key string) (int, bool) {
	if len(key) < minPartialMatch {
		return 0, false
	}

	best, bestDiff := -1, 0
	for i, c := range columns {
		h := strings.ToLower(c.Header)
		if !containsWord(h, key) && !containsWord(key, h) {
			continue
		}
		diff := len(h) - len(key)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best, best >= 0
}

// containsWord reports whether needle occurs in hay delimited by string
// edges or non-alphanumeric bytes, so "age" matches "co-applicant age" but
// not "mortgage".
func containsWord(hay, needle string) bool {
	for start := 0; start+len(needle) <= len(hay); {
		i := strings.Index(hay[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		if (i == 0 || !isWordByte(hay[i-1])) && (end == len(hay) || !isWordByte(hay[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
