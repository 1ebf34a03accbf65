package services

import "testing"

func TestExtractCapacity(t *testing.T) {
	tests := []struct {
		title string
		value float64
		unit  string
	}{
		{"Samsung 990 PRO 2TB NVMe SSD", 2, "TB"},
		{"Crucial P3 500GB M.2 SSD", 500, "GB"},
		{"SanDisk Extreme 1,5TB microSDXC", 1.5, "TB"},
		{"Logitech MX Master 3S", 0, ""},
	}

	for _, tt := range tests {
		value, unit := ExtractCapacity(tt.title)
		if value != tt.value || unit != tt.unit {
			t.Errorf("ExtractCapacity(%q) = %v %q, want %v %q", tt.title, value, unit, tt.value, tt.unit)
		}
	}
}

func TestExtractTechnology(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Samsung 990 PRO 2TB NVMe SSD", "NVMe"},
		{"WD Blue 4TB SATA HDD", "SATA"},
		{"Corsair Vengeance 32GB DDR5", "DDR5"},
		{"LG UltraGear OLED Monitor", "OLED"},
		{"Generic Widget", ""},
	}

	for _, tt := range tests {
		if got := ExtractTechnology(tt.title); got != tt.want {
			t.Errorf("ExtractTechnology(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestExtractFormFactor(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Samsung 990 PRO M.2 2280 SSD", "M.2 2280"},
		{`Seagate BarraCuda 3.5" HDD`, `3.5"`},
		{"Kingston Fury SO-DIMM 16GB", "SO-DIMM"},
		{"Random Gadget", ""},
	}

	for _, tt := range tests {
		if got := ExtractFormFactor(tt.title); got != tt.want {
			t.Errorf("ExtractFormFactor(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestExtractEnergyLabel(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"LG 27UP850 Monitor Energy Class F", "F"},
		{"Bosch Fridge EEK: C", "C"},
		{"Old Freezer A++ Rating", "A++"},
		{"Plain Gadget", ""},
	}

	for _, tt := range tests {
		if got := ExtractEnergyLabel(tt.title); got != tt.want {
			t.Errorf("ExtractEnergyLabel(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
