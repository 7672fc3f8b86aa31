package resources

import (
	"reflect"
	"sync"
	"sync/atomic"
)

var (
	typeIDs    sync.Map // reflect.Type -> TypeID
	nextTypeID atomic.Uint32
)

// TypeOf returns the TypeID for T, assigning one on first use.
// Two distinct types never share an ID; the same type always yields the
// same ID within a process.
func TypeOf[T any]() TypeID {
	return idOf(reflect.TypeOf((*T)(nil)).Elem())
}

func idOf(t reflect.Type) TypeID {
	if v, ok := typeIDs.Load(t); ok {
		return v.(TypeID)
	}
	// Lost races leave gaps in the ID sequence, which is fine: only
	// uniqueness and ordering matter.
	id := TypeID(nextTypeID.Add(1))
	if v, loaded := typeIDs.LoadOrStore(t, id); loaded {
		return v.(TypeID)
	}
	return id
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func typeNameOf(v any) string {
	return reflect.TypeOf(v).String()
}
