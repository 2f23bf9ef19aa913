package core

import (
	"time"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// SampleFileName is the download name offered for the import template.
const SampleFileName = "lead_import_sample.csv"

// SampleLead returns the fixed example lead used for the import template.
func SampleLead() lead.Lead {
	var (
		propertyAge   = 8
		monthlyIncome = 85000.0
		annualIncome  = 1020000.0
		otherIncome   = 120000.0
		loanAmount    = 2500000.0
		coAge         = 32
		verifiedAt    = time.Date(2024, time.January, 20, 10, 30, 0, 0, time.UTC)
	)

	return lead.Lead{
		ID:               "LEAD-0001",
		Name:             "John Doe",
		Age:              35,
		Job:              "Software Engineer",
		Status:           lead.StatusPending,
		Bank:             "HDFC",
		VisitType:        lead.VisitResidence,
		AssignedTo:       "agent-001",
		VerificationDate: &verifiedAt,
		Instructions:     "Verify residence and employment",
		HasCoApplicant:   true,
		CoApplicantName:  "Jane Doe",
		CreatedAt:        time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC),
		Address: lead.Address{
			Type:     lead.AddressResidence,
			Street:   "12 MG Road",
			City:     "Bengaluru",
			District: "Bengaluru Urban",
			State:    "Karnataka",
			Pincode:  "560001",
		},
		AdditionalDetails: lead.AdditionalDetails{
			Company:            "Acme Technologies",
			Designation:        "Senior Engineer",
			WorkExperience:     "10 years",
			PropertyType:       "Apartment",
			OwnershipStatus:    "Owned",
			PropertyAge:        &propertyAge,
			MonthlyIncome:      &monthlyIncome,
			AnnualIncome:       &annualIncome,
			OtherIncome:        &otherIncome,
			FatherName:         "Richard Doe",
			MotherName:         "Mary Doe",
			Gender:             "Male",
			DateOfBirth:        "1989-04-12",
			LoanAmount:         &loanAmount,
			LoanType:           "Home Loan",
			LeadType:           "Residence Verification",
			LeadTypeID:         "LT-01",
			BankProduct:        "Home Loan Plus",
			BankBranch:         "MG Road",
			AgencyFileNo:       "AGF-2024-001",
			ApplicationBarcode: "APP123456",
			CaseID:             "CASE-001",
			SchemeDesc:         "Standard home loan scheme",
			AdditionalComments: "Customer prefers a morning visit",
			VehicleBrandName:   "Maruti Suzuki",
			VehicleBrandID:     "MS-01",
			VehicleModelName:   "Swift",
			VehicleModelID:     "SW-2023",
			CoApplicant: &lead.CoApplicant{
				Age:        &coAge,
				Phone:      "+919876543210",
				Email:      "jane.doe@example.com",
				Relation:   "Spouse",
				Occupation: "Teacher",
			},
		},
	}
}

// SampleCSV returns a template file: the canonical header row and one
// example row.
func SampleCSV() string {
	return ExportCSV([]lead.Lead{SampleLead()})
}
