package main

import (
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		expected Target
		wantErr  bool
	}{
		{
			name: "host only",
			spec: "1.1.1.1",
			expected: Target{
				Host:     "1.1.1.1",
				Port:     53,
				Protocol: ProtocolTCP,
				Name:     "1.1.1.1:53/tcp",
			},
		},
		{
			name: "host and port",
			spec: "example.com:443",
			expected: Target{
				Host:     "example.com",
				Port:     443,
				Protocol: ProtocolTCP,
				Name:     "example.com:443/tcp",
			},
		},
		{
			name: "host port and protocol",
			spec: "8.8.8.8:53/udp",
			expected: Target{
				Host:     "8.8.8.8",
				Port:     53,
				Protocol: ProtocolUDP,
				Name:     "8.8.8.8:53/udp",
			},
		},
		{
			name: "uppercase protocol",
			spec: "8.8.8.8:53/UDP",
			expected: Target{
				Host:     "8.8.8.8",
				Port:     53,
				Protocol: ProtocolUDP,
				Name:     "8.8.8.8:53/udp",
			},
		},
		{
			name:    "empty spec",
			spec:    "",
			wantErr: true,
		},
		{
			name:    "unknown protocol",
			spec:    "1.1.1.1:53/icmp",
			wantErr: true,
		},
		{
			name:    "invalid port",
			spec:    "1.1.1.1:99999",
			wantErr: true,
		},
		{
			name:    "missing host",
			spec:    ":53/tcp",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := ParseTarget(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error for %q, got %+v", tt.spec, target)
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.spec, err)
			}
			if target != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, target)
			}
		})
	}
}

func TestParseTargetsRejectsDuplicates(t *testing.T) {
	// "1.1.1.1" and "1.1.1.1:53/tcp" normalize to the same name.
	_, err := ParseTargets([]string{"1.1.1.1", "1.1.1.1:53/tcp"})
	if err == nil {
		t.Error("Expected an error for duplicate targets")
	}
}

func TestParseTargetsRequiresAtLeastOne(t *testing.T) {
	if _, err := ParseTargets(nil); err == nil {
		t.Error("Expected an error for an empty target list")
	}
}

func TestTargetAddr(t *testing.T) {
	target := Target{Host: "::1", Port: 53}
	if addr := target.Addr(); addr != "[::1]:53" {
		t.Errorf("Expected [::1]:53, got %s", addr)
	}
}

func TestTargetFolderName(t *testing.T) {
	target := Target{Name: "1.1.1.1:53/tcp"}
	if folder := target.FolderName(); folder != "1.1.1.1_53_tcp" {
		t.Errorf("Expected 1.1.1.1_53_tcp, got %s", folder)
	}
}
