package toolhead

import "testing"

func TestLoadConfigAppliesDefaultsForOmittedFields(t *testing.T) {
	yamlData := []byte(`
max_velocity: 250
max_accel: 2500
`)
	cfg, err := LoadConfig(yamlData)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxVelocity != 250 {
		t.Errorf("max_velocity = %v, want 250", cfg.MaxVelocity)
	}
	if cfg.MaxAccel != 2500 {
		t.Errorf("max_accel = %v, want 2500", cfg.MaxAccel)
	}
	if cfg.MaxAccelToDecel != 1250 {
		t.Errorf("max_accel_to_decel default = %v, want half of max_accel (1250)", cfg.MaxAccelToDecel)
	}
	if cfg.BufferTimeHigh != 2.0 {
		t.Errorf("buffer_time_high default = %v, want 2.0", cfg.BufferTimeHigh)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	yamlData := []byte(`
max_velocity: -5
max_accel: 2500
`)
	if _, err := LoadConfig(yamlData); err == nil {
		t.Errorf("expected LoadConfig to reject a negative max_velocity")
	}
}
