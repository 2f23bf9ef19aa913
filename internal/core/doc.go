// Package core provides the lead interchange format and the business logic
// around it.
//
// This package holds all domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # CSV Format
//
// A lead file has a header row followed by one row per lead. The columns are
// fixed and listed by [Columns]; nested records (address, additional details,
// co-applicant) are flattened into their own columns. Every absent value is
// written as the literal NA and text is always quoted:
//
//	"Lead ID","Name","Age",...
//	"LEAD-0001","John Doe",35,...
//
// [ExportCSV] and [ParseCSV] are inverses for every lead that can be
// represented: parsing an export yields leads equal to the input, except that
// empty strings and the text "NA" both come back as empty.
//
// # Import
//
// Import is best-effort. Headers are matched by name in any order, including
// common aliases and partial matches (see [ResolveHeader]); unknown headers
// are kept per lead in Lead.Extra. A cell that does not coerce to its column
// type leaves the field empty rather than failing the row. Spreadsheet
// artifacts such as ="0123" are cleaned before coercion.
//
// Files may be CSV in UTF-8 (with or without a BOM) or Windows-1252, or XLSX
// workbooks. [Service.ImportFile] detects the format, upserts the leads and
// records the run in the import history.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - LEAD001-LEAD003: Lead lookups and workflow transitions
//   - VAL001-VAL005: Validation errors (required fields, enums, phones)
//   - FILE001-FILE005: File errors (size, format, encoding)
//   - IMP001-IMP003: Import errors (concurrency, cancelled, timeout)
//   - DB001-DB005: Storage errors (duplicates, connections)
package core
