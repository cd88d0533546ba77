package testutil

// WithStandardClans adds three clans in guild-1 with disjoint members and
// well separated colors.
//
//	alpha  ALP  #FF0000  leader Person(100) roster Person(101..104)
//	bravo  BRV  #00FF00  leader Person(200) roster Person(201..204)
//	charlie CHR #0000FF  leader Person(300) roster Person(301..304)
func (b *Builder) WithStandardClans() *Builder {
	return b.
		WithClan("alpha", Tag("ALP"), Name("Alpha Squad"), Color("#FF0000"), Server("1"),
			Leader(Person(100)), Roster(People(101, 4)), RoleID("role-alpha"), Messages("reg-alpha", "log-alpha")).
		WithClan("bravo", Tag("BRV"), Name("Bravo Company"), Color("#00FF00"), Server("2"),
			Leader(Person(200)), Roster(People(201, 4)), RoleID("role-bravo"), Messages("reg-bravo", "log-bravo")).
		WithClan("charlie", Tag("CHR"), Name("Charlie Unit"), Color("#0000FF"), Server("3"),
			Leader(Person(300)), Roster(People(301, 4)), RoleID("role-charlie"), Messages("reg-charlie", "log-charlie"))
}
