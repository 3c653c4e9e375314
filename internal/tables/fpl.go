package tables

// Default is the Fantasy Premier League registry. Declaration order breaks
// rank ties, so teams is always provisioned first among the rank-1 tables.
var Default = MustRegistry(
	Teams, Fixtures, TeamElos, EloChanges, Players, PlayerStats,
	Chips, ElementTypes, ElementStats,
	Elements, ElementHistory, ElementHistoryPast,
)

var Teams = &Spec{
	Name: "teams",
	Rank: 1,
	Columns: []Column{
		{Name: "code", Kind: Integer, Nullable: true},
		{Name: "id", Kind: Integer},
		{Name: "name", Kind: Text},
		{Name: "short_name", Kind: Text},
	},
	PrimaryKey:  []string{"id"},
	ConflictKey: []string{"id"},
}

var Fixtures = &Spec{
	Name: "fixtures",
	Rank: 2,
	Columns: []Column{
		{Name: "code", Kind: Integer},
		{Name: "id", Kind: Integer, Unique: true},
		{Name: "event", Kind: Integer},
		{Name: "finished", Kind: Boolean},
		{Name: "team_h", Kind: Integer},
		{Name: "team_a", Kind: Integer},
		{Name: "kickoff_time", Kind: Timestamp},
		{Name: "team_h_xg", Kind: Real, Nullable: true},
		{Name: "team_a_xg", Kind: Real, Nullable: true},
	},
	PrimaryKey: []string{"code"},
	ForeignKeys: []ForeignKey{
		{Column: "team_h", RefTable: "teams", RefColumn: "id"},
		{Column: "team_a", RefTable: "teams", RefColumn: "id"},
	},
	ConflictKey: []string{"code"},
}

var TeamElos = &Spec{
	Name: "team_elos",
	Rank: 3,
	Columns: []Column{
		{Name: "team_id", Kind: Integer},
		{Name: "off_elo", Kind: Real},
		{Name: "def_elo", Kind: Real},
	},
	PrimaryKey:  []string{"team_id"},
	ForeignKeys: []ForeignKey{{Column: "team_id", RefTable: "teams", RefColumn: "id"}},
	ConflictKey: []string{"team_id"},
}

var EloChanges = &Spec{
	Name: "elo_changes",
	Rank: 4,
	Columns: []Column{
		{Name: "fixture_code", Kind: Integer},
		{Name: "team_id", Kind: Integer},
		{Name: "off_change", Kind: Real},
		{Name: "def_change", Kind: Real},
	},
	PrimaryKey: []string{"fixture_code", "team_id"},
	ForeignKeys: []ForeignKey{
		{Column: "fixture_code", RefTable: "fixtures", RefColumn: "code"},
		{Column: "team_id", RefTable: "teams", RefColumn: "id"},
	},
	ConflictKey: []string{"fixture_code", "team_id"},
}

var Players = &Spec{
	Name: "players",
	Rank: 5,
	Columns: []Column{
		{Name: "code", Kind: Integer, Nullable: true, Unique: true},
		{Name: "id", Kind: Integer},
		{Name: "first_name", Kind: Text, Nullable: true},
		{Name: "second_name", Kind: Text, Nullable: true},
		{Name: "web_name", Kind: Text},
		{Name: "element_type", Kind: Integer},
		{Name: "selected_by_percent", Kind: Real, Nullable: true},
		{Name: "team", Kind: Integer},
		{Name: "team_code", Kind: Integer, Nullable: true},
		{Name: "status", Kind: Text, Nullable: true},
		{Name: "news", Kind: Text, Nullable: true},
		{Name: "now_cost", Kind: Integer},
	},
	PrimaryKey:  []string{"id"},
	ForeignKeys: []ForeignKey{{Column: "team", RefTable: "teams", RefColumn: "id"}},
	ConflictKey: []string{"id"},
}

// PlayerStats is the high-volume table: one row per player per fixture.
var PlayerStats = &Spec{
	Name: "player_stats",
	Rank: 6,
	Columns: []Column{
		{Name: "bps", Kind: Integer, Nullable: true},
		{Name: "defensive_contribution", Kind: Integer, Nullable: true},
		{Name: "element", Kind: Integer},
		{Name: "expected_assists", Kind: Real, Nullable: true},
		{Name: "expected_goals", Kind: Real, Nullable: true},
		{Name: "expected_goals_conceded", Kind: Real, Nullable: true},
		{Name: "fixture", Kind: Integer},
		{Name: "minutes", Kind: Integer, Nullable: true},
		{Name: "opponent_team", Kind: Integer, Nullable: true},
		{Name: "round", Kind: Integer},
		{Name: "starts", Kind: Integer, Nullable: true},
		{Name: "total_points", Kind: Integer, Nullable: true},
		{Name: "ict_index", Kind: Real, Nullable: true},
	},
	PrimaryKey: []string{"element", "fixture"},
	ForeignKeys: []ForeignKey{
		{Column: "element", RefTable: "players", RefColumn: "id"},
		{Column: "fixture", RefTable: "fixtures", RefColumn: "code"},
		{Column: "opponent_team", RefTable: "teams", RefColumn: "id"},
	},
	ConflictKey: []string{"element", "fixture"},
}

var Chips = &Spec{
	Name: "chips",
	Rank: 1,
	Columns: []Column{
		{Name: "id", Kind: Integer},
		{Name: "name", Kind: Text},
		{Name: "number", Kind: Integer},
		{Name: "start_event", Kind: Integer},
		{Name: "stop_event", Kind: Integer},
		{Name: "chip_type", Kind: Text},
	},
	PrimaryKey:  []string{"id"},
	ConflictKey: []string{"id"},
}

var ElementTypes = &Spec{
	Name: "element_types",
	Rank: 1,
	Columns: []Column{
		{Name: "id", Kind: Integer},
		{Name: "plural_name", Kind: Text},
		{Name: "plural_name_short", Kind: Text},
		{Name: "singular_name", Kind: Text},
		{Name: "singular_name_short", Kind: Text},
		{Name: "squad_select", Kind: Integer},
		{Name: "squad_min_play", Kind: Integer},
		{Name: "squad_max_play", Kind: Integer},
	},
	PrimaryKey:  []string{"id"},
	ConflictKey: []string{"id"},
}

var ElementStats = &Spec{
	Name: "element_stats",
	Rank: 1,
	Columns: []Column{
		{Name: "label", Kind: Text},
		{Name: "name", Kind: Text},
	},
	PrimaryKey:  []string{"label"},
	ConflictKey: []string{"label"},
}

// Elements mirrors the raw bootstrap-static element list. Decimal-looking
// fields such as points_per_game stay text, the API sends them as strings.
var Elements = &Spec{
	Name: "elements",
	Rank: 2,
	Columns: []Column{
		{Name: "code", Kind: Integer, Nullable: true, Unique: true},
		{Name: "id", Kind: Integer},
		{Name: "can_transact", Kind: Boolean},
		{Name: "can_select", Kind: Boolean},
		{Name: "element_type", Kind: Integer},
		{Name: "first_name", Kind: Text, Nullable: true},
		{Name: "second_name", Kind: Text, Nullable: true},
		{Name: "web_name", Kind: Text},
		{Name: "news", Kind: Text, Nullable: true},
		{Name: "news_added", Kind: Text, Nullable: true},
		{Name: "now_cost", Kind: Integer},
		{Name: "points_per_game", Kind: Text, Nullable: true},
		{Name: "removed", Kind: Boolean},
		{Name: "selected_by_percent", Kind: Text, Nullable: true},
		{Name: "status", Kind: Text, Nullable: true},
		{Name: "team", Kind: Integer},
		{Name: "team_code", Kind: Integer, Nullable: true},
		{Name: "total_points", Kind: Integer},
	},
	PrimaryKey: []string{"id"},
	ForeignKeys: []ForeignKey{
		{Column: "element_type", RefTable: "element_types", RefColumn: "id"},
		{Column: "team", RefTable: "teams", RefColumn: "id"},
	},
	ConflictKey: []string{"id"},
}

// ElementHistory is the per-fixture history from element-summary.
var ElementHistory = &Spec{
	Name: "element_history",
	Rank: 3,
	Columns: []Column{
		{Name: "element", Kind: Integer},
		{Name: "fixture", Kind: Integer},
		{Name: "opponent_team", Kind: Integer, Nullable: true},
		{Name: "total_points", Kind: Integer, Nullable: true},
		{Name: "minutes", Kind: Integer, Nullable: true},
		{Name: "starts", Kind: Integer, Nullable: true},
		{Name: "goals_scored", Kind: Integer, Nullable: true},
		{Name: "assists", Kind: Integer, Nullable: true},
		{Name: "expected_goals", Kind: Text, Nullable: true},
		{Name: "expected_assists", Kind: Text, Nullable: true},
		{Name: "expected_goal_involvements", Kind: Text, Nullable: true},
		{Name: "clean_sheets", Kind: Integer, Nullable: true},
		{Name: "goals_conceded", Kind: Integer, Nullable: true},
		{Name: "saves", Kind: Integer, Nullable: true},
		{Name: "penalties_saved", Kind: Integer, Nullable: true},
		{Name: "clearances_blocks_interceptions", Kind: Integer, Nullable: true},
		{Name: "recoveries", Kind: Integer, Nullable: true},
		{Name: "tackles", Kind: Integer, Nullable: true},
		{Name: "expected_goals_conceded", Kind: Text, Nullable: true},
		{Name: "yellow_cards", Kind: Integer, Nullable: true},
		{Name: "red_cards", Kind: Integer, Nullable: true},
		{Name: "own_goals", Kind: Integer, Nullable: true},
		{Name: "penalties_missed", Kind: Integer, Nullable: true},
		{Name: "bonus", Kind: Integer, Nullable: true},
		{Name: "bps", Kind: Integer, Nullable: true},
		{Name: "influence", Kind: Text, Nullable: true},
		{Name: "creativity", Kind: Text, Nullable: true},
		{Name: "threat", Kind: Text, Nullable: true},
		{Name: "ict_index", Kind: Text, Nullable: true},
		{Name: "value", Kind: Integer, Nullable: true},
		{Name: "selected", Kind: Integer, Nullable: true},
		{Name: "transfers_in", Kind: Integer, Nullable: true},
		{Name: "transfers_out", Kind: Integer, Nullable: true},
		{Name: "transfers_balance", Kind: Integer, Nullable: true},
	},
	PrimaryKey: []string{"element", "fixture"},
	ForeignKeys: []ForeignKey{
		{Column: "element", RefTable: "elements", RefColumn: "id"},
		{Column: "fixture", RefTable: "fixtures", RefColumn: "code"},
		{Column: "opponent_team", RefTable: "teams", RefColumn: "id"},
	},
	ConflictKey: []string{"element", "fixture"},
}

// ElementHistoryPast keys past seasons by the stable element code, ids are
// reassigned every season.
var ElementHistoryPast = &Spec{
	Name: "element_history_past",
	Rank: 3,
	Columns: []Column{
		{Name: "season_name", Kind: Text},
		{Name: "element_code", Kind: Integer},
		{Name: "start_cost", Kind: Integer},
		{Name: "end_cost", Kind: Integer},
		{Name: "total_points", Kind: Integer},
		{Name: "minutes", Kind: Integer},
		{Name: "starts", Kind: Integer},
		{Name: "goals_scored", Kind: Integer},
		{Name: "assists", Kind: Integer},
		{Name: "expected_goals", Kind: Text, Nullable: true},
		{Name: "expected_assists", Kind: Text, Nullable: true},
		{Name: "expected_goal_involvements", Kind: Text, Nullable: true},
		{Name: "clean_sheets", Kind: Integer},
		{Name: "goals_conceded", Kind: Integer},
		{Name: "own_goals", Kind: Integer},
		{Name: "saves", Kind: Integer},
		{Name: "expected_goals_conceded", Kind: Text, Nullable: true},
		{Name: "yellow_cards", Kind: Integer},
		{Name: "red_cards", Kind: Integer},
		{Name: "penalties_saved", Kind: Integer},
		{Name: "penalties_missed", Kind: Integer},
		{Name: "bonus", Kind: Integer},
		{Name: "bps", Kind: Integer},
		{Name: "influence", Kind: Text, Nullable: true},
		{Name: "creativity", Kind: Text, Nullable: true},
		{Name: "threat", Kind: Text, Nullable: true},
		{Name: "ict_index", Kind: Text, Nullable: true},
		{Name: "defensive_contribution", Kind: Integer},
		{Name: "clearances_blocks_interceptions", Kind: Integer},
		{Name: "recoveries", Kind: Integer},
		{Name: "tackles", Kind: Integer},
	},
	PrimaryKey:  []string{"season_name", "element_code"},
	ForeignKeys: []ForeignKey{{Column: "element_code", RefTable: "elements", RefColumn: "code"}},
	ConflictKey: []string{"season_name", "element_code"},
}
