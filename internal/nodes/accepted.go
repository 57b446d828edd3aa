package nodes

// acceptedMPIFuncs are the MPI calls the extractor turns into graph nodes:
// point-to-point messaging, wait/test completion, collectives, and
// MPI-IO file operations.
var acceptedMPIFuncs = toSet([]string{
	"MPI_Send", "MPI_Ssend", "MPI_Issend", "MPI_Isend",
	"MPI_Recv", "MPI_Sendrecv", "MPI_Irecv",
	"MPI_Wait", "MPI_Waitall", "MPI_Waitany",
	"MPI_Waitsome", "MPI_Test", "MPI_Testall",
	"MPI_Testany", "MPI_Testsome", "MPI_Bcast",
	"MPI_Ibcast", "MPI_Reduce", "MPI_Ireduce",
	"MPI_Gather", "MPI_Igather", "MPI_Gatherv",
	"MPI_Igatherv", "MPI_Barrier", "MPI_Alltoall",
	"MPI_Allreduce", "MPI_Allgatherv",
	"MPI_Reduce_scatter", "MPI_File_open",
	"MPI_File_close", "MPI_File_read_at_all",
	"MPI_File_write_at_all", "MPI_File_set_size",
	"MPI_File_set_view", "MPI_File_sync",
	"MPI_File_read_all", "MPI_File_read_ordered",
	"MPI_File_write_all", "MPI_File_write_ordered",
	"MPI_Comm_dup", "MPI_Comm_split",
	"MPI_Comm_split_type", "MPI_Cart_create",
	"MPI_Cart_sub",
})

// acceptedMetaFuncs are the POSIX metadata/sync calls the extractor turns
// into graph nodes.
var acceptedMetaFuncs = toSet([]string{
	"fsync", "open", "fopen", "close", "fclose",
})

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// IsAcceptedMPIFunc reports whether func is one of the MPI calls tracked
// for synchronization matching.
func IsAcceptedMPIFunc(fn string) bool { return acceptedMPIFuncs[fn] }

// IsAcceptedMetaFunc reports whether func is a tracked POSIX metadata call.
func IsAcceptedMetaFunc(fn string) bool { return acceptedMetaFuncs[fn] }
