package inspector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/producer"
)

func TestUninstalled_CallsAreNoops(t *testing.T) {
	SendFrameMark()
	SendAttributeInt(NameID("x"), 1)
	sc := NewScope(1)
	sc.End()
	sc.End() // idempotent
}

func TestInstallUninstall_Lifecycle(t *testing.T) {
	require.NoError(t, Install(producer.WithBasePort(0), producer.WithBroadcastNum(1)))
	defer Uninstall()

	require.Error(t, Install())

	SendFrameMark()
	sc := NewScope(3)
	sc.End()

	Uninstall()
	require.NoError(t, Install(producer.WithBasePort(0), producer.WithBroadcastNum(1)))
}
