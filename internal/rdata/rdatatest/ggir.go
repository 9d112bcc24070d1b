package rdatatest

// MetaWorkspace builds a GGIR part 1 style workspace: M$metashort with
// timestamp and ENMO columns and M$metalong with a timestamp column. Other
// members of M are filled with the kind of values GGIR stores there.
func MetaWorkspace(shortTimes []string, enmo []float64, longTimes []string) *File {
	metashort := DataFrame(len(shortTimes),
		Col{"timestamp", Str(shortTimes...)},
		Col{"anglez", Real(make([]float64, len(shortTimes))...)},
		Col{"ENMO", Real(enmo...)},
	)
	nonwear := make([]float64, len(longTimes))
	metalong := DataFrame(len(longTimes),
		Col{"timestamp", Str(longTimes...)},
		Col{"nonwearscore", Real(nonwear...)},
		Col{"clippingscore", Real(nonwear...)},
	)
	m := List([]string{"filecorrupt", "filetooshort", "metalong", "metashort", "windowsizes"},
		Logical(0),
		Logical(0),
		metalong,
		metashort,
		Int(5, 900, 3600),
	)
	return NewWorkspace().
		Add("M", m).
		Add("filefoldername", Str("participant.csv")).
		Add("filename_dir", Str("participant.csv"))
}

// MS2Workspace builds a GGIR part 2 style workspace holding IMP$rout with
// indicator columns r1 to r5. r2, r4 and r5 are zero.
func MS2Workspace(r1, r3 []float64) *File {
	zeros := make([]float64, len(r1))
	rout := DataFrame(len(r1),
		Col{"r1", Real(r1...)},
		Col{"r2", Real(zeros...)},
		Col{"r3", Real(r3...)},
		Col{"r4", Real(zeros...)},
		Col{"r5", Real(zeros...)},
	)
	imp := List([]string{"metashort", "rout", "averageday"},
		Null(),
		rout,
		Null(),
	)
	summary := List([]string{"n_days"}, Int(int32(len(r1))))
	return NewWorkspace().
		Add("IMP", imp).
		Add("SUM", summary)
}
