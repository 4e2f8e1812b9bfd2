package perms

// PermissionOverwriteMap is a (target id) -> allowed bool map, as carried
// by an app command's or integration's per-channel/user/role overwrite
// section.
type PermissionOverwriteMap struct {
	Channels map[string]bool
	Users    map[string]bool
	Roles    map[string]bool
}

// Command is the subset of an application command's shape this package
// needs to resolve its effective availability.
type Command struct {
	AppID                     string
	Permissions               PermissionOverwriteMap
	DefaultMemberPermissions  *int64 // nil = everyone, 0 = admins only
}

// AppPermissions is a per-application integration permission map (the
// guild-level default for commands that don't carry their own overrides).
type AppPermissions struct {
	AppID string
	Perms PermissionOverwriteMap
}

// allPermissionBits mirrors the reference client's flag-index list used
// to compare a default_member_permissions mask against the caller's
// effective channel permissions: bits 0-46 plus 49 and 50.
var allPermissionBits = buildPermissionBitList()

func buildPermissionBitList() []int {
	bits := make([]int, 0, 49)
	for i := 0; i < 47; i++ {
		bits = append(bits, i)
	}
	bits = append(bits, 49, 50)
	return bits
}

// ComputeCommandPermissions resolves, for each command, whether the local
// user may execute it in the given channel: admins can run everything;
// otherwise per-command overwrites take priority over per-app overwrites,
// channel over user over role, and a command with neither falls back to
// its default_member_permissions mask compared against the user's
// effective channel permissions.
func ComputeCommandPermissions(commands []Command, appPerms []AppPermissions, channelID, guildID string, myRoles []string, myID string, admin bool, myChannelPerms int64) []bool {
	if admin {
		out := make([]bool, len(commands))
		for i := range out {
			out[i] = true
		}
		return out
	}

	roleSet := toSet(myRoles)
	out := make([]bool, 0, len(commands))

	for _, cmd := range commands {
		appP := findAppPerms(appPerms, cmd.AppID)
		if isEmptyOverwrite(cmd.Permissions) && isEmptyOverwrite(appP) && cmd.DefaultMemberPermissions == nil {
			out = append(out, true)
			continue
		}

		skip := false

		if v, ok := lookupChannel(cmd.Permissions, channelID, guildID); ok {
			skip = true
			if !v {
				out = append(out, false)
				continue
			}
		} else if v, ok := lookupChannel(appP, channelID, guildID); ok {
			skip = true
			if !v {
				out = append(out, false)
				continue
			}
		}
		if skip {
			out = append(out, true)
			continue
		}

		if v, ok := cmd.Permissions.Users[myID]; ok {
			out = append(out, v)
			continue
		}

		if v, ok := lookupRole(cmd.Permissions, roleSet, guildID); ok {
			out = append(out, v)
			continue
		}

		if v, ok := appP.Users[myID]; ok && !v {
			out = append(out, false)
			continue
		}

		if v, ok := lookupRole(appP, roleSet, guildID); ok && !v {
			out = append(out, false)
			continue
		}

		if cmd.DefaultMemberPermissions == nil {
			out = append(out, true)
			continue
		}
		if *cmd.DefaultMemberPermissions == 0 {
			out = append(out, false)
			continue
		}
		out = append(out, subsetOfPermissions(*cmd.DefaultMemberPermissions, myChannelPerms))
	}
	return out
}

// subsetOfPermissions reports whether every bit set in required is also
// set in held, checked bit-by-bit over the same flag-index list the
// reference client decodes (bits 0-46, 49, 50) rather than a raw mask
// comparison, since unused/reserved bits must not affect the result.
func subsetOfPermissions(required, held int64) bool {
	for _, bit := range allPermissionBits {
		if hasFlag(required, bit) && !hasFlag(held, bit) {
			return false
		}
	}
	return true
}

func isEmptyOverwrite(m PermissionOverwriteMap) bool {
	return len(m.Channels) == 0 && len(m.Users) == 0 && len(m.Roles) == 0
}

func findAppPerms(apps []AppPermissions, appID string) PermissionOverwriteMap {
	for _, a := range apps {
		if a.AppID == appID {
			return a.Perms
		}
	}
	return PermissionOverwriteMap{}
}

func lookupChannel(m PermissionOverwriteMap, channelID, guildID string) (bool, bool) {
	if v, ok := m.Channels[channelID]; ok {
		return v, true
	}
	if v, ok := m.Channels[guildID]; ok { // guild id doubles as the "all channels" entry
		return v, true
	}
	return false, false
}

func lookupRole(m PermissionOverwriteMap, myRoles map[string]bool, guildID string) (bool, bool) {
	if v, ok := m.Roles[guildID]; ok { // guild id doubles as @everyone's role entry
		return v, true
	}
	for role := range myRoles {
		if v, ok := m.Roles[role]; ok {
			return v, true
		}
	}
	return false, false
}
