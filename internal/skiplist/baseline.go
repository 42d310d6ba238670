package skiplist

// Baseline skip entries: official game files the cleaning tool must never be
// pointed at, keyed by game short code. Extension-less entries match any
// plugin whose filename stem equals the entry (generated patch plugins).
var baseline = map[string][]string{
	"tes4": {
		"Oblivion.esm",
	},
	"fo3": {
		"Fallout3.esm",
		"Anchorage.esm",
		"ThePitt.esm",
		"BrokenSteel.esm",
		"PointLookout.esm",
		"Zeta.esm",
	},
	"fnv": {
		"FalloutNV.esm",
		"DeadMoney.esm",
		"HonestHearts.esm",
		"OldWorldBlues.esm",
		"LonesomeRoad.esm",
		"GunRunnersArsenal.esm",
		"CaravanPack.esm",
		"ClassicPack.esm",
		"MercenaryPack.esm",
		"TribalPack.esm",
	},
	"tes5": {
		"Skyrim.esm",
		"Update.esm",
		"Dawnguard.esm",
		"HearthFires.esm",
		"Dragonborn.esm",
	},
	"sse": {
		"Skyrim.esm",
		"Update.esm",
		"Dawnguard.esm",
		"HearthFires.esm",
		"Dragonborn.esm",
	},
	"tes5vr": {
		"Skyrim.esm",
		"Update.esm",
		"Dawnguard.esm",
		"HearthFires.esm",
		"Dragonborn.esm",
		"SkyrimVR.esm",
	},
	"enderal": {
		"Skyrim.esm",
		"Update.esm",
		"Enderal - Forgotten Stories.esm",
	},
	"enderalse": {
		"Skyrim.esm",
		"Update.esm",
		"Dawnguard.esm",
		"HearthFires.esm",
		"Dragonborn.esm",
		"Enderal - Forgotten Stories.esm",
	},
	"fo4": {
		"Fallout4.esm",
		"DLCRobot.esm",
		"DLCworkshop01.esm",
		"DLCworkshop02.esm",
		"DLCworkshop03.esm",
		"DLCCoast.esm",
		"DLCNukaWorld.esm",
	},
	"fo4vr": {
		"Fallout4.esm",
		"Fallout4_VR.esm",
	},
}

// Generated patch plugins carry findings by construction; cleaning them is
// pointless for every game.
var commonBaseline = []string{
	"Bashed Patch",
	"Smashed Patch",
	"Merged Patch",
}

// Baseline returns the fixed skip entries for a game, common entries included.
func Baseline(game string) []string {
	entries := make([]string, 0, len(baseline[game])+len(commonBaseline))
	entries = append(entries, baseline[game]...)
	entries = append(entries, commonBaseline...)
	return entries
}
