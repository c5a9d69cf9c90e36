package winpath

import "testing"

func TestJoin(t *testing.T) {
	for _, tc := range []struct {
		elem []string
		want string
	}{
		{[]string{`D:\`, "VMs", "*"}, `D:\VMs\*`},
		{[]string{"D:", "VMs", "*"}, `D:\VMs\*`},
		{[]string{`C:\\src\`, "img.vhdx"}, `C:\src\img.vhdx`},
		{[]string{`\\share\images`, "Base_R86.vhdx"}, `\\share\images\Base_R86.vhdx`},
		{[]string{"emu", "VM-Template"}, `emu\VM-Template`},
		{[]string{"emu/VMs"}, `emu\VMs`},
	} {
		if got := Join(tc.elem...); got != tc.want {
			t.Errorf("Join(%q) = %q, want %q", tc.elem, got, tc.want)
		}
	}
}

func TestBaseDirExt(t *testing.T) {
	p := `D:\VM-Template\Base_R86.vhdx`
	if got := Base(p); got != "Base_R86.vhdx" {
		t.Errorf("Base: %q", got)
	}
	if got := Dir(p); got != `D:\VM-Template` {
		t.Errorf("Dir: %q", got)
	}
	if got := Dir(`D:\img.zip`); got != `D:\` {
		t.Errorf("Dir of root file: %q", got)
	}
	if got := Ext(p); got != ".vhdx" {
		t.Errorf("Ext: %q", got)
	}
	if got := TrimExt(p); got != "Base_R86" {
		t.Errorf("TrimExt: %q", got)
	}
}
