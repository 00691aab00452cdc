package model

import "testing"

func TestProject_ApplyDefaults(t *testing.T) {
	t.Parallel()

	p := &Project{Title: "Site redesign"}
	p.ApplyDefaults()

	if p.Status != StatusPending {
		t.Errorf("Status = %s, want %s", p.Status, StatusPending)
	}
	if p.Priority != PriorityMedium {
		t.Errorf("Priority = %s, want %s", p.Priority, PriorityMedium)
	}
	if p.Category != CategoryOther {
		t.Errorf("Category = %s, want %s", p.Category, CategoryOther)
	}
	if p.Image != DefaultProjectImage {
		t.Errorf("Image = %s, want placeholder", p.Image)
	}
}

func TestProject_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	p := &Project{
		Status:   StatusCompleted,
		Priority: PriorityHigh,
		Category: CategoryDesign,
		Image:    "/uploads/a.png",
	}
	p.ApplyDefaults()

	if p.Status != StatusCompleted || p.Priority != PriorityHigh || p.Category != CategoryDesign || p.Image != "/uploads/a.png" {
		t.Errorf("explicit values were overwritten: %+v", p)
	}
}

func TestEnums_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		valid bool
	}{
		{"status pending", ProjectStatus("pending").IsValid()},
		{"status in-progress", ProjectStatus("in-progress").IsValid()},
		{"status completed", ProjectStatus("completed").IsValid()},
		{"priority high", ProjectPriority("high").IsValid()},
		{"category marketing", ProjectCategory("marketing").IsValid()},
		{"role admin", Role("admin").IsValid()},
	}
	for _, tt := range tests {
		if !tt.valid {
			t.Errorf("%s should be valid", tt.name)
		}
	}

	invalid := []struct {
		name  string
		valid bool
	}{
		{"status done", ProjectStatus("done").IsValid()},
		{"priority urgent", ProjectPriority("urgent").IsValid()},
		{"category sales", ProjectCategory("sales").IsValid()},
		{"role owner", Role("owner").IsValid()},
		{"empty role", Role("").IsValid()},
	}
	for _, tt := range invalid {
		if tt.valid {
			t.Errorf("%s should be invalid", tt.name)
		}
	}
}

func TestRoleSet_Contains(t *testing.T) {
	t.Parallel()

	admins := NewRoleSet(RoleAdmin)
	if !admins.Contains(RoleAdmin) {
		t.Error("admin set should contain admin")
	}
	if admins.Contains(RoleUser) {
		t.Error("admin set should not contain user")
	}

	var empty RoleSet
	if empty.Contains(RoleUser) {
		t.Error("empty set should contain nothing")
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := NormalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestActivityType_IsValid(t *testing.T) {
	t.Parallel()

	for _, typ := range ValidActivityTypes {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if ActivityType("link_clicked").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
