package directory

// Sample returns a small directory used when none is configured.
func Sample() *Memory {
	return &Memory{
		ContactList: []Contact{
			{ID: "c-dupont", Name: "Jean Dupont", Type: ContactClient},
			{ID: "c-martin", Name: "Société Martin", Type: ContactClient},
			{ID: "c-leroy", Name: "Claire Leroy", Type: ContactProspect},
			{ID: "c-bati", Name: "Bati Fournitures", Type: ContactSupplier},
			{ID: "c-archi", Name: "Atelier Archi & Co", Type: ContactPartner},
		},
		ProjectList: []Project{
			{ID: "p-dupont-cuisine", ContactID: "c-dupont", Name: "Rénovation cuisine"},
			{ID: "p-dupont-sdb", ContactID: "c-dupont", Name: "Salle de bain"},
			{ID: "p-martin-bureaux", ContactID: "c-martin", Name: "Aménagement bureaux"},
		},
		AddressList: []Address{
			{ID: "a-dupont-home", ContactID: "c-dupont", Label: "12 rue des Lilas, 69003 Lyon"},
			{ID: "a-martin-hq", ContactID: "c-martin", Label: "4 avenue Foch, 75116 Paris"},
			{ID: "a-martin-depot", ContactID: "c-martin", Label: "ZI Nord, 93200 Saint-Denis"},
		},
		CollaboratorList: []Collaborator{
			{ID: "u-alice", Name: "Alice Bernard"},
			{ID: "u-karim", Name: "Karim Haddad"},
			{ID: "u-sophie", Name: "Sophie Moreau"},
		},
	}
}
