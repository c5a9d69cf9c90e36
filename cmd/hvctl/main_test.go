package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/unicode"

	"github.com/Microsoft/hvctl/internal/appargs"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"hvctl"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const switchCapture = `
Name                             : VSWITCH_01
SwitchType                       : External
NetAdapterInterfaceDescription   : Mellanox ConnectX-4 Lx Ethernet Adapter
IovEnabled                       : True

Name                             : managementvSwitch
SwitchType                       : External
NetAdapterInterfaceDescription   : Intel(R) Ethernet Connection X722
IovEnabled                       : False
`

func TestParseBlock(t *testing.T) {
	p := writeFile(t, "switches.txt", []byte(switchCapture))

	out, err := run(t, "parse", "block", "--format", "json", "--lower", p)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(got))
	}
	if got[0]["iovenabled"] != "true" || got[1]["name"] != "managementvswitch" {
		t.Fatalf("unexpected blocks %v", got)
	}
}

func TestParseBlock_UTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	b, err := enc.Bytes([]byte("Name : VSWITCH_01\r\nIovEnabled : True\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	p := writeFile(t, "utf16.txt", b)

	out, err := run(t, "parse", "block", p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name       : VSWITCH_01") || !strings.Contains(out, "iovenabled : True") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestParseDisks(t *testing.T) {
	p := writeFile(t, "disks.txt", []byte(`
Caption DriveType   FreeSpace          Size
------- ---------   ---------          ----
D:              3  1073741824 1000202039296
C:              3 43636490240  255369777152
Z:              4 88888888888 1000202039296
`))

	out, err := run(t, "parse", "disks", "-f", "json", p)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	want := []map[string]string{
		{"disk": `C:\`, "free": "43636490240", "total": "255369777152"},
		{"disk": `D:\`, "free": "1073741824", "total": "1000202039296"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestParseDisks_NoPartition(t *testing.T) {
	p := writeFile(t, "disks.txt", []byte("nothing here\n"))

	if _, err := run(t, "parse", "disks", p); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParse_Usage(t *testing.T) {
	_, err := run(t, "parse", "block")
	if !errors.Is(err, appargs.ErrInvalidUsage) {
		t.Fatalf("expected invalid usage, got %v", err)
	}
}

func TestParse_BadFormat(t *testing.T) {
	p := writeFile(t, "switches.txt", []byte(switchCapture))

	if _, err := run(t, "parse", "block", "-f", "yaml", p); err == nil || !strings.Contains(err.Error(), "invalid format option") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	p := writeFile(t, "hvctl.toml", []byte(`
[host]
address = "10.0.0.1"
port = 2222
user = "administrator"
key_file = "/keys/id_ed25519"

[timeouts]
connect = "30s"
vm = "10m"
settle = "1s"
poll = "2s"

[images]
source = '\\share\images'
ips_file = 'C:\hvctl\ips.ini'
mac_prefix = "AA:BB:CC"
`))

	cfg, err := loadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	want := &config{
		Host: hostConfig{
			Address: "10.0.0.1",
			Port:    2222,
			User:    "administrator",
			KeyFile: "/keys/id_ed25519",
		},
		Timeouts: timeoutConfig{Connect: "30s", VM: "10m", Settle: "1s", Poll: "2s"},
		Images: imageConfig{
			Source:    `\\share\images`,
			IPsFile:   `C:\hvctl\ips.ini`,
			MACPrefix: "AA:BB:CC",
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	opts, err := cfg.options()
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 3 {
		t.Fatalf("expected 3 option groups, got %d", len(opts))
	}
}

func TestConfigOptions_InvalidDuration(t *testing.T) {
	cfg := &config{Timeouts: timeoutConfig{VSwitch: "two minutes"}}
	if _, err := cfg.options(); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseDuration(t *testing.T) {
	d, ok, err := parseDuration("vm", "")
	if err != nil || ok || d != 0 {
		t.Fatalf("empty: %v %t %v", d, ok, err)
	}
	d, ok, err = parseDuration("vm", "90s")
	if err != nil || !ok || d != 90*time.Second {
		t.Fatalf("90s: %v %t %v", d, ok, err)
	}
}

func TestDial_NoHost(t *testing.T) {
	cfg := &config{}
	if _, err := cfg.dial(appCtx); err == nil || !strings.Contains(err.Error(), "no host configured") {
		t.Fatalf("expected missing host error, got %v", err)
	}
}

func TestDial_Local(t *testing.T) {
	cfg := &config{Host: hostConfig{Local: true}}
	conn, err := cfg.dial(appCtx)
	if err != nil {
		t.Fatal(err)
	}
	if conn.Address() != "localhost" {
		t.Fatalf("got %s", conn.Address())
	}
}
