package host_test

import (
	"context"
	"testing"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/host"
	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

func TestRunSourceReturnsValue(t *testing.T) {
	v := host.New()
	result, err := v.RunSource(context.Background(), "test.ember", []byte("return 1 + 2\n"))
	require.NoError(t, err)
	require.Equal(t, value.Int(3), result)
}

func TestSetGlobalReachesScript(t *testing.T) {
	v := host.New()
	v.SetGlobal("double", &value.NativeFunction{
		FuncName: "double",
		Func: func(args []value.Value) (value.Value, error) {
			return args[0].(value.Int) * 2, nil
		},
	})
	result, err := v.RunSource(context.Background(), "test.ember", []byte("return double(21)\n"))
	require.NoError(t, err)
	require.Equal(t, value.Int(42), result)
}

func TestSetPreludeExportsBecomeGlobals(t *testing.T) {
	v := host.New()
	err := v.SetPrelude(context.Background(), "prelude.ember", []byte("export let answer = 42\n"))
	require.NoError(t, err)
	result, err := v.RunSource(context.Background(), "test.ember", []byte("return answer\n"))
	require.NoError(t, err)
	require.Equal(t, value.Int(42), result)
}

func TestCompileErrorSurfacesParseDiagnostics(t *testing.T) {
	v := host.New()
	_, err := v.Compile("bad.ember", []byte("let = \n"))
	require.Error(t, err)
}

func TestModuleLoaderServesImport(t *testing.T) {
	v := host.New()
	modProg, err := v.CompileProgram("mod.ember", []byte("export let greeting = \"hi\"\n"))
	require.NoError(t, err)
	v.SetModuleLoader(func(name string) (*compiler.Program, error) {
		require.Equal(t, "greetings", name)
		return modProg, nil
	})
	result, err := v.RunSource(context.Background(), "test.ember", []byte("import greetings m\nreturn m[\"greeting\"]\n"))
	require.NoError(t, err)
	require.Equal(t, value.String("hi"), result)
}
