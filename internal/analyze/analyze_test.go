package analyze

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mromap/internal/config"
	"mromap/internal/report"
)

const baseSource = `import abc

class Animal:
    def speak(self):
        pass

class BaseChannel(metaclass=abc.ABCMeta):
    @abc.abstractmethod
    def _generate_payload(self):
        raise NotImplementedError()

    @abc.abstractmethod
    def get_channel_details(self):
        raise NotImplementedError()

    def _triage_change_trigger(self, aggregate):
        return True
`

const emailSource = `from base import BaseChannel

class EmailChannel(BaseChannel):
    def _generate_payload(self):
        return {'emails': self.emails}

    def _triage_change_trigger(self, aggregate):
        return False
`

const webhookSource = `from base import BaseChannel

class WebhookChannel(BaseChannel):
    def _generate_payload(self):
        return {'url': self.url}

    def get_channel_details(self):
        return {'url': self.url}
`

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func findEntry(t *testing.T, entries []report.MethodEntry, name string) report.MethodEntry {
	t.Helper()
	for _, e := range entries {
		if e.Method.Name == name {
			return e
		}
	}
	t.Fatalf("no entry for %s in %+v", name, entries)
	return report.MethodEntry{}
}

func refNames(refs []report.MethodRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ClassName+"."+r.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWorkspaceChannelScenario(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	basePath := writeFile(t, root, "base.py", baseSource)
	emailPath := writeFile(t, root, "email_channel.py", emailSource)
	webhookPath := writeFile(t, root, "webhook_channel.py", webhookSource)

	a := New(root, config.Default())
	if err := a.Workspace(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep := a.Report()

	baseFile, ok := rep[basePath]
	if !ok {
		t.Fatalf("base.py missing from report: %v", keys(rep))
	}

	gen := findEntry(t, baseFile.Methods, "_generate_payload")
	if got := refNames(gen.OverrideMethods); !equal(got, []string{
		"email_channel.EmailChannel._generate_payload",
		"webhook_channel.WebhookChannel._generate_payload",
	}) {
		t.Errorf("_generate_payload overrides = %v", got)
	}
	if !gen.Method.IsAbstract {
		t.Error("_generate_payload should be abstract")
	}

	details := findEntry(t, baseFile.Methods, "get_channel_details")
	if got := refNames(details.OverrideMethods); !equal(got, []string{
		"webhook_channel.WebhookChannel.get_channel_details",
	}) {
		t.Errorf("get_channel_details overrides = %v", got)
	}

	triage := findEntry(t, baseFile.Methods, "_triage_change_trigger")
	if got := refNames(triage.OverrideMethods); !equal(got, []string{
		"email_channel.EmailChannel._triage_change_trigger",
	}) {
		t.Errorf("_triage_change_trigger overrides = %v", got)
	}

	emailFile := rep[emailPath]
	emailGen := findEntry(t, emailFile.Methods, "_generate_payload")
	if got := refNames(emailGen.BaseMethods); !equal(got, []string{
		"base.BaseChannel._generate_payload",
	}) {
		t.Errorf("email _generate_payload bases = %v", got)
	}
	if len(emailGen.BaseMethods) == 1 && emailGen.BaseMethods[0].FilePath != basePath {
		t.Errorf("base method file = %q", emailGen.BaseMethods[0].FilePath)
	}

	baseInfo := baseFile.Classes["BaseChannel"]
	if !equal(baseInfo.SubClasses, []string{"email_channel.EmailChannel", "webhook_channel.WebhookChannel"}) {
		t.Errorf("BaseChannel sub_classes = %v", baseInfo.SubClasses)
	}
	if baseInfo.FullName != "base.BaseChannel" {
		t.Errorf("full_name = %q", baseInfo.FullName)
	}

	emailInfo := emailFile.Classes["EmailChannel"]
	if !equal(emailInfo.BaseClasses, []string{"base.BaseChannel"}) {
		t.Errorf("EmailChannel base_classes = %v", emailInfo.BaseClasses)
	}

	// Animal declares no relationships but still shows up in the
	// hierarchy table.
	if _, ok := baseFile.Classes["Animal"]; !ok {
		t.Errorf("Animal missing from classes: %v", baseFile.Classes)
	}

	if _, ok := rep[webhookPath]; !ok {
		t.Error("webhook_channel.py missing from report")
	}
}

func keys(m map[string]report.File) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestFileWithoutRelationships(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeFile(t, root, "solo.py", "class Solo:\n    def only(self):\n        pass\n")

	a := New(root, config.Default())
	if err := a.Workspace(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep := a.Report()

	f, ok := rep[path]
	if !ok {
		t.Fatal("solo.py missing from report")
	}
	if len(f.Methods) != 0 {
		t.Errorf("methods = %+v", f.Methods)
	}
	if _, ok := f.Classes["Solo"]; !ok {
		t.Errorf("classes = %v", f.Classes)
	}
}

func TestAddFileSubsetAnalysis(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "base.py", baseSource)
	emailPath := writeFile(t, root, "email_channel.py", emailSource)

	a := New(root, config.Default())
	if err := a.AddFile(emailPath); err != nil {
		t.Fatal(err)
	}
	a.Resolve()
	rep := a.Report()

	// base.py was never added, so no override links exist, but the
	// hierarchy still records the import-resolved base spelling.
	f, ok := rep[emailPath]
	if !ok {
		t.Fatal("email_channel.py missing from report")
	}
	if len(f.Methods) != 0 {
		t.Errorf("methods = %+v", f.Methods)
	}
	info := f.Classes["EmailChannel"]
	if !equal(info.BaseClasses, []string{"base.BaseChannel"}) {
		t.Errorf("base_classes = %v", info.BaseClasses)
	}
}

func TestReAddingFileReplacesClasses(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "mod.py")

	a := New(root, config.Default())
	if err := a.AddSource(path, []byte("class A:\n    def run(self):\n        pass\n")); err != nil {
		t.Fatal(err)
	}
	a.Resolve()

	if err := a.AddSource(path, []byte("class A:\n    def walk(self):\n        pass\n")); err != nil {
		t.Fatal(err)
	}
	a.Resolve()

	cls, ok := a.Registry().Lookup("mod.A")
	if !ok {
		t.Fatal("mod.A not registered")
	}
	if len(cls.Methods) != 1 || cls.Methods[0].Name != "walk" {
		t.Errorf("methods after re-add = %+v", cls.Methods)
	}
}

func TestRelativeImportResolution(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	basePath := writeFile(t, root, "pkg/base.py", "class Base:\n    def run(self):\n        pass\n")
	subPath := writeFile(t, root, "pkg/sub.py", "from .base import Base\n\nclass Sub(Base):\n    def run(self):\n        pass\n")

	a := New(root, config.Default())
	if err := a.Workspace(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep := a.Report()

	sub := findEntry(t, rep[subPath].Methods, "run")
	if got := refNames(sub.BaseMethods); !equal(got, []string{"pkg.base.Base.run"}) {
		t.Errorf("sub run bases = %v", got)
	}

	base := findEntry(t, rep[basePath].Methods, "run")
	if got := refNames(base.OverrideMethods); !equal(got, []string{"pkg.sub.Sub.run"}) {
		t.Errorf("base run overrides = %v", got)
	}
}

func TestWorkspaceEmpty(t *testing.T) {
	t.Parallel()

	a := New(t.TempDir(), config.Default())
	if err := a.Workspace(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rep := a.Report(); len(rep) != 0 {
		t.Errorf("report = %v", rep)
	}
}

func TestWorkspaceSkipsOversizedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "small.py", "class Small:\n    pass\n")
	writeFile(t, root, "big.py", "# "+string(make([]byte, 2048))+"\n")

	cfg := config.Default()
	cfg.MaxFileSize = 1024

	a := New(root, cfg)
	if err := a.Workspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !a.Registry().Has("small.Small") {
		t.Error("small.Small not registered")
	}
	if got := a.Registry().Len(); got != 1 {
		t.Errorf("registered classes = %d", got)
	}
}
