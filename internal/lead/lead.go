// Package lead defines the verification lead record and its sub-records.
//
// A Lead owns its Address and AdditionalDetails by value. Optional string
// attributes use the empty string for "no value"; optional numeric attributes
// are pointers so that an absent amount is distinguishable from zero.
package lead

import "time"

// Lead is a single field-verification case assigned to an agent.
type Lead struct {
	ID               string     `json:"id"`
	Name             string     `json:"name" validate:"required,max=200"`
	Age              int        `json:"age" validate:"gte=0,lte=130"`
	Job              string     `json:"job"`
	Status           Status     `json:"status" validate:"omitempty,lead_status"`
	Bank             string     `json:"bank" validate:"required"`
	VisitType        VisitType  `json:"visitType" validate:"omitempty,visit_type"`
	AssignedTo       string     `json:"assignedTo"`
	VerificationDate *time.Time `json:"verificationDate,omitempty"`
	Instructions     string     `json:"instructions"`
	HasCoApplicant   bool       `json:"hasCoApplicant"`
	CoApplicantName  string     `json:"coApplicantName,omitempty" validate:"required_if=HasCoApplicant true"`
	CreatedAt        time.Time  `json:"createdAt"`

	Address             Address           `json:"address"`
	AdditionalAddresses []Address         `json:"additionalAddresses,omitempty" validate:"dive"`
	AdditionalDetails   AdditionalDetails `json:"additionalDetails"`

	// Extra holds values from import columns that matched no known header,
	// keyed by the raw header text.
	Extra map[string]string `json:"extra,omitempty"`
}

// Address is a postal address attached to a lead.
type Address struct {
	Type     AddressType `json:"type" validate:"omitempty,address_type"`
	Street   string      `json:"street"`
	City     string      `json:"city"`
	District string      `json:"district"`
	State    string      `json:"state"`
	Pincode  string      `json:"pincode" validate:"omitempty,numeric,len=6"`
}

// AdditionalDetails is the wide bag of optional applicant attributes
// collected during verification.
type AdditionalDetails struct {
	// Employment
	Company        string `json:"company,omitempty"`
	Designation    string `json:"designation,omitempty"`
	WorkExperience string `json:"workExperience,omitempty"`

	// Property
	PropertyType    string `json:"propertyType,omitempty"`
	OwnershipStatus string `json:"ownershipStatus,omitempty"`
	PropertyAge     *int   `json:"propertyAge,omitempty" validate:"omitempty,gte=0"`

	// Income
	MonthlyIncome *float64 `json:"monthlyIncome,omitempty" validate:"omitempty,gte=0"`
	AnnualIncome  *float64 `json:"annualIncome,omitempty" validate:"omitempty,gte=0"`
	OtherIncome   *float64 `json:"otherIncome,omitempty" validate:"omitempty,gte=0"`

	// Personal
	FatherName  string `json:"fatherName,omitempty"`
	MotherName  string `json:"motherName,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`

	// Loan and product
	LoanAmount         *float64 `json:"loanAmount,omitempty" validate:"omitempty,gte=0"`
	LoanType           string   `json:"loanType,omitempty"`
	LeadType           string   `json:"leadType,omitempty"`
	LeadTypeID         string   `json:"leadTypeId,omitempty"`
	BankProduct        string   `json:"bankProduct,omitempty"`
	BankBranch         string   `json:"bankBranch,omitempty"`
	AgencyFileNo       string   `json:"agencyFileNo,omitempty"`
	ApplicationBarcode string   `json:"applicationBarcode,omitempty"`
	CaseID             string   `json:"caseId,omitempty"`
	SchemeDesc         string   `json:"schemeDesc,omitempty"`
	AdditionalComments string   `json:"additionalComments,omitempty"`

	// Vehicle
	VehicleBrandName string `json:"vehicleBrandName,omitempty"`
	VehicleBrandID   string `json:"vehicleBrandId,omitempty"`
	VehicleModelName string `json:"vehicleModelName,omitempty"`
	VehicleModelID   string `json:"vehicleModelId,omitempty"`

	CoApplicant *CoApplicant `json:"coApplicant,omitempty"`
}

// CoApplicant describes a second applicant on the same case.
type CoApplicant struct {
	Name       string   `json:"name,omitempty"`
	Age        *int     `json:"age,omitempty" validate:"omitempty,gte=0,lte=130"`
	Phone      string   `json:"phone,omitempty" validate:"omitempty,phone"`
	Email      string   `json:"email,omitempty" validate:"omitempty,email"`
	Relation   string   `json:"relation,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Income     *float64 `json:"income,omitempty" validate:"omitempty,gte=0"`
}

// IsZero reports whether no co-applicant attribute is set.
func (c *CoApplicant) IsZero() bool {
	if c == nil {
		return true
	}
	return c.Name == "" && c.Age == nil && c.Phone == "" && c.Email == "" &&
		c.Relation == "" && c.Occupation == "" && c.Income == nil
}

// New returns a lead with default enum values and the given identity.
func New(id, name, bank string) Lead {
	return Lead{
		ID:        id,
		Name:      name,
		Bank:      bank,
		Status:    StatusPending,
		VisitType: DefaultVisitType,
		Address:   Address{Type: DefaultAddressType},
	}
}
