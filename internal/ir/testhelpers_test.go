package ir

// sampleSpec is a hand-built spec equivalent to compiling
//
//	log(y) ~ C(A, ShiftedGamma(delta=-0.5)) + C(A:z(B), Normal(irf_id=N)) + (C(A, ShiftedGamma(ran=T)) | subject)
func sampleSpec() *ModelSpec {
	return &ModelSpec{
		Formula:   "log(y) ~ C(A, ShiftedGamma(delta=-0.5)) + C(A:z(B), Normal(irf_id=N)) + (C(A, ShiftedGamma(ran=T)) | subject)",
		Response:  VariableRef{Name: "y", Transforms: []string{"log"}},
		Intercept: true,
		Terms: []Term{
			{Vars: []VariableRef{{Name: "A"}}, IRF: "irf#1", Coef: "coef#1"},
			{Vars: []VariableRef{{Name: "A"}, {Name: "B", Transforms: []string{"z"}}}, IRF: "N", Coef: "coef#2"},
		},
		Random: []RandomEffectBlock{
			{
				Group:     "subject",
				Intercept: true,
				Terms:     []Term{{Vars: []VariableRef{{Name: "A"}}, IRF: "irf#2", Coef: "coef#1", Ran: true}},
				Ties:      []int{0},
			},
		},
		IRFs: map[string]IRFSpec{
			"irf#1": {ID: "irf#1", Family: "ShiftedGamma", Params: []IRFParam{
				{Name: "alpha"}, {Name: "beta"}, {Name: "delta", Init: "-0.5", Constraint: ConstraintNegative},
			}},
			"N": {ID: "N", Family: "Normal", Params: []IRFParam{{Name: "mu"}, {Name: "sigma2"}}},
			"irf#2": {ID: "irf#2", Family: "ShiftedGamma", Ran: true, Group: "subject", Base: "irf#1", Params: []IRFParam{
				{Name: "alpha"}, {Name: "beta"}, {Name: "delta", Constraint: ConstraintNegative},
			}},
		},
		Coefs: map[string]CoefSpec{
			"coef#1": {ID: "coef#1", Groups: []string{"subject"}},
			"coef#2": {ID: "coef#2"},
		},
		IRVersion: IRVersion,
	}
}
