package doctors

// DemoProfiles is the demo catalog installed by Seed.
var DemoProfiles = []Profile{
	{
		Name:           "Dr. Sarah Johnson",
		Email:          "sarah.johnson@hospital.com",
		Phone:          "+1-555-0101",
		Specialization: "Cardiology",
		Experience:     12,
		Education:      "MD from Harvard Medical School",
		About:          "Experienced cardiologist specializing in heart disease prevention and treatment.",
		Fee:            200,
		Address:        Address{Line1: "123 Medical Center Dr", City: "New York", State: "NY", ZipCode: "10001"},
	},
	{
		Name:           "Dr. Michael Chen",
		Email:          "michael.chen@hospital.com",
		Phone:          "+1-555-0102",
		Specialization: "Dermatology",
		Experience:     8,
		Education:      "MD from Johns Hopkins University",
		About:          "Dermatologist focused on skin health and cosmetic procedures.",
		Fee:            150,
		Address:        Address{Line1: "456 Health Plaza", City: "Los Angeles", State: "CA", ZipCode: "90210"},
	},
	{
		Name:           "Dr. Emily Rodriguez",
		Email:          "emily.rodriguez@hospital.com",
		Phone:          "+1-555-0103",
		Specialization: "Pediatrics",
		Experience:     15,
		Education:      "MD from Stanford University",
		About:          "Pediatrician dedicated to children's health and development.",
		Fee:            120,
		Address:        Address{Line1: "789 Children's Way", City: "Chicago", State: "IL", ZipCode: "60601"},
	},
	{
		Name:           "Dr. James Wilson",
		Email:          "james.wilson@hospital.com",
		Phone:          "+1-555-0104",
		Specialization: "Orthopedics",
		Experience:     20,
		Education:      "MD from Mayo Clinic",
		About:          "Orthopedic surgeon specializing in joint replacement and sports medicine.",
		Fee:            250,
		Address:        Address{Line1: "321 Sports Medicine Blvd", City: "Miami", State: "FL", ZipCode: "33101"},
	},
	{
		Name:           "Dr. Lisa Thompson",
		Email:          "lisa.thompson@hospital.com",
		Phone:          "+1-555-0105",
		Specialization: "Neurology",
		Experience:     18,
		Education:      "MD from UCLA",
		About:          "Neurologist specializing in brain and nervous system disorders.",
		Fee:            300,
		Address:        Address{Line1: "654 Brain Center Ave", City: "Seattle", State: "WA", ZipCode: "98101"},
	},
}
