package perms

import (
	"testing"

	"github.com/discord-terminal/engine/internal/state"
)

func TestComputeOwnerGetsFullAccess(t *testing.T) {
	g := state.Guild{ID: "g1", Owned: true, Channels: []state.Channel{{ID: "c1"}}}
	results, admin := Compute(g, "me", nil)
	if !admin {
		t.Fatal("expected owner to be admin")
	}
	if !results["c1"].AllowWrite || !results["c1"].Permitted {
		t.Fatalf("expected full access for owner, got %+v", results["c1"])
	}
}

func TestComputeEveryoneDenyOverridesBase(t *testing.T) {
	g := state.Guild{
		ID:        "g1",
		BasePerms: ViewChannel | SendMessages,
		Channels: []state.Channel{
			{
				ID: "c1",
				Overwrites: []state.Overwrite{
					{ID: "g1", Type: 0, Deny: SendMessages},
				},
			},
		},
	}
	results, admin := Compute(g, "me", nil)
	if admin {
		t.Fatal("expected non-admin")
	}
	if !results["c1"].Permitted {
		t.Fatal("expected VIEW_CHANNEL to survive")
	}
	if results["c1"].AllowWrite {
		t.Fatal("expected @everyone deny overwrite to remove SEND_MESSAGES")
	}
}

func TestComputeMemberOverwriteWinsOverRole(t *testing.T) {
	g := state.Guild{
		ID:        "g1",
		BasePerms: ViewChannel,
		Roles:     []state.Role{{ID: "r1", Permissions: 0}},
		Channels: []state.Channel{
			{
				ID: "c1",
				Overwrites: []state.Overwrite{
					{ID: "r1", Type: 0, Deny: SendMessages},
					{ID: "me", Type: 1, Allow: SendMessages},
				},
			},
		},
	}
	results, _ := Compute(g, "me", []string{"r1"})
	if !results["c1"].AllowWrite {
		t.Fatal("expected member overwrite to re-grant SEND_MESSAGES over the role deny")
	}
}

func TestComputeCommandPermissionsAdminBypassesEverything(t *testing.T) {
	cmds := []Command{{AppID: "a1"}}
	out := ComputeCommandPermissions(cmds, nil, "c1", "g1", nil, "me", true, 0)
	if len(out) != 1 || !out[0] {
		t.Fatal("expected admin to bypass all command permission checks")
	}
}

func TestComputeCommandPermissionsChannelDenyWins(t *testing.T) {
	cmds := []Command{{
		AppID: "a1",
		Permissions: PermissionOverwriteMap{
			Channels: map[string]bool{"c1": false},
		},
	}}
	out := ComputeCommandPermissions(cmds, nil, "c1", "g1", nil, "me", false, ViewChannel)
	if out[0] {
		t.Fatal("expected channel-level deny to block the command")
	}
}

func TestComputeCommandPermissionsDefaultMemberPermissionsSubset(t *testing.T) {
	required := ViewChannel | SendMessages
	cmds := []Command{{AppID: "a1", DefaultMemberPermissions: &required}}

	out := ComputeCommandPermissions(cmds, nil, "c1", "g1", nil, "me", false, ViewChannel|SendMessages)
	if !out[0] {
		t.Fatal("expected command allowed when user holds every required bit")
	}

	out = ComputeCommandPermissions(cmds, nil, "c1", "g1", nil, "me", false, ViewChannel)
	if out[0] {
		t.Fatal("expected command denied when user is missing a required bit")
	}
}
