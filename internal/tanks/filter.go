package tanks

import "github.com/tanktools/tanktools/internal/rbac"

// FilterRecords returns the records of department the caller may see, with
// restricted fields removed. The input map and its records are left untouched.
func FilterRecords(records map[string]Record, department string, perms rbac.EffectivePermissions) map[string]Record {
	out := make(map[string]Record, len(records))
	for id, rec := range records {
		if !rbac.CanAccessTank(perms, id, department) {
			continue
		}
		out[id] = FilterRecord(rec, perms)
	}
	return out
}

// FilterRecord strips the fields perms does not allow from a copy of rec.
func FilterRecord(rec Record, perms rbac.EffectivePermissions) Record {
	out := rec.Clone()
	if !perms.Data(rbac.DataViewCapacityFactors) {
		for _, field := range capacityFields {
			delete(out, field)
		}
	}
	if !perms.Data(rbac.DataViewMinMaxLevels) {
		for _, field := range levelFields {
			delete(out, field)
		}
	}
	return out
}
