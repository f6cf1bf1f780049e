package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionString(t *testing.T) {
	defer func(branch, revision, dirty string) {
		Branch, Revision, Dirty = branch, revision, dirty
	}(Branch, Revision, Dirty)

	Branch = "master"
	Revision = "0123456789abcdef"
	Dirty = ""

	require.Equal(t, "Version: master @Revision: 0123456789abcdef", Current().String())
	require.Equal(t, "master@0123456", Current().Short())

	Dirty = "yes"
	require.Equal(t, "Version: master @Revision: 0123456789abcdef (dirty-repo)", Current().String())
	require.Equal(t, "master@0123456(D)", Current().Short())
}
