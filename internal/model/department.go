package model

import "fmt"

type Department string

const (
	DepartmentDental      Department = "dental"
	DepartmentRadiology   Department = "radiology"
	DepartmentClinicalLab Department = "clinical_lab"
	DepartmentMedical     Department = "medical"
	DepartmentDDE         Department = "dde"
)

// Departments lists every bookable department in display order.
var Departments = []Department{
	DepartmentDental,
	DepartmentRadiology,
	DepartmentClinicalLab,
	DepartmentMedical,
	DepartmentDDE,
}

var departmentNames = map[Department]string{
	DepartmentDental:      "Dental",
	DepartmentRadiology:   "Radiology",
	DepartmentClinicalLab: "Clinical Laboratory",
	DepartmentMedical:     "Medical",
	DepartmentDDE:         "Drug Dependency Examination",
}

var departmentPrefixes = map[Department]string{
	DepartmentDental:      "DEN",
	DepartmentRadiology:   "RAD",
	DepartmentClinicalLab: "LAB",
	DepartmentMedical:     "MED",
	DepartmentDDE:         "DDE",
}

func ParseDepartment(s string) (Department, error) {
	d := Department(s)
	if _, ok := departmentNames[d]; !ok {
		return "", fmt.Errorf("unknown department: %q", s)
	}
	return d, nil
}

func (d Department) Valid() bool {
	_, ok := departmentNames[d]
	return ok
}

func (d Department) DisplayName() string {
	return departmentNames[d]
}

// NumberPrefix is used when composing appointment numbers, e.g. RAD-2025-000123.
func (d Department) NumberPrefix() string {
	return departmentPrefixes[d]
}

// MultiCapacity reports whether the department models a time label as a
// counter with capacity > 1. Medical and DDE issue one slot entry per
// bookable unit instead.
func (d Department) MultiCapacity() bool {
	switch d {
	case DepartmentRadiology, DepartmentDental, DepartmentClinicalLab:
		return true
	default:
		return false
	}
}
