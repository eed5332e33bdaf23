package report

import "time"

// PlaceholderImage is the stock picture a new draft starts with. Documents
// never embed it.
const PlaceholderImage = "https://images.pexels.com/photos/356079/pexels-photo-356079.jpeg"

// DefaultClinicInfo returns the built-in clinic header.
func DefaultClinicInfo() ClinicInfo {
	return ClinicInfo{
		Name:       "JAMMI SCANS",
		Department: "DEPARTMENT OF FETAL MEDICINE",
		Address:    "No:16 Vaidhyaraman Street, Tnagar",
		Phone:      "+1 (555) 123-4567",
		Email:      "info@jammiscans.com",
		Website:    "https://jammiscans.com",
	}
}

// DefaultAIModelOutput returns the findings a new draft is seeded with.
func DefaultAIModelOutput() AIModelOutput {
	return AIModelOutput{
		DetectedStructures: Structures{
			{Name: "palate", Confidence: 52.96},
			{Name: "nasal skin", Confidence: 52.79},
			{Name: "nasal bone", Confidence: 48.64},
			{Name: "CM", Confidence: 41.83},
			{Name: "nasal tip", Confidence: 27.39},
		},
		Indications:      "First trimester screening",
		ScanType:         "Real time B-mode ultrasonography of gravid uterus done",
		Route:            "Transabdominal and Transvaginal",
		Gestation:        "Single intrauterine gestation",
		FetalActivity:    "Fetal activity present",
		CardiacActivity:  "Cardiac activity present",
		PlacentaLocation: "Placenta - Anterior",
		LiquorStatus:     "Liquor - Normal",
	}
}

// NewReportData returns an empty draft body dated now. A zero clinic falls
// back to DefaultClinicInfo.
func NewReportData(clinic ClinicInfo, now time.Time) ReportData {
	if clinic == (ClinicInfo{}) {
		clinic = DefaultClinicInfo()
	}
	return ReportData{
		Patient:       Patient{VisitDate: now.Format(DateLayout)},
		ClinicInfo:    clinic,
		AIModelOutput: DefaultAIModelOutput(),
	}
}

// NewDraft returns a fresh draft record carrying the placeholder image.
func NewDraft(clinic ClinicInfo, now time.Time) Record {
	return Record{
		SchemaVersion: CurrentSchemaVersion,
		Image:         PlaceholderImage,
		Data:          NewReportData(clinic, now),
	}
}
