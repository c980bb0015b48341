package persona

// ExpertContext is the per-persona scoring configuration: a weight and an
// ordered sequence of keyword clusters. Each cluster is an independent topic;
// clusters of the same persona do not overlap semantically but may share
// vocabulary.
//
// Keywords must be lower-case. Multi-word keywords match in either their
// literal form or their hyphen-joined form ("breach of contract" also
// matches "breach-of-contract").
type ExpertContext struct {
	// ID is the persona this context recommends.
	ID string `yaml:"id"`

	// Weight is the per-persona scoring multiplier.
	Weight float64 `yaml:"weight"`

	// Clusters holds the keyword clusters, evaluated in order.
	Clusters [][]string `yaml:"clusters"`
}

// DefaultContexts returns the built-in expert-context table. The evaluation
// order is fixed: ties between equal top scores keep the first context found.
func DefaultContexts() []ExpertContext {
	return []ExpertContext{
		{
			ID:     "guardian",
			Weight: 2.0,
			Clusters: [][]string{
				{"smoke alarm", "carbon monoxide", "intruder", "break-in", "home security"},
				{"child safety", "babyproof", "car seat", "stranger danger", "curfew"},
				{"emergency", "first aid", "evacuation", "fire extinguisher"},
			},
		},
		{
			ID:     "lawyer",
			Weight: 2.8,
			Clusters: [][]string{
				{"breach of contract", "settlement", "damages", "liability"},
				{"arrested", "charges", "bail", "warrant", "rights"},
				{"landlord", "eviction", "lease", "deposit", "tenant"},
			},
		},
		{
			ID:     "doctor",
			Weight: 2.5,
			Clusters: [][]string{
				{"symptoms", "diagnosis", "fever", "headache", "rash"},
				{"prescription", "dosage", "side effects", "medication", "refill"},
				{"blood pressure", "cholesterol", "diabetes", "heart rate"},
			},
		},
		{
			ID:     "therapist",
			Weight: 2.2,
			Clusters: [][]string{
				{"anxiety", "depression", "panic attack", "overwhelmed", "stress"},
				{"relationship", "breakup", "grief", "lonely", "therapy"},
				{"sleep", "insomnia", "burnout", "motivation"},
			},
		},
		{
			ID:     "finance",
			Weight: 2.4,
			Clusters: [][]string{
				{"budget", "savings", "debt", "interest rate", "credit score"},
				{"stocks", "portfolio", "retirement", "401k", "dividend"},
				{"mortgage", "refinance", "down payment", "closing costs"},
			},
		},
	}
}
