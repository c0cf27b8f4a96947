package bot

// Static reply templates. Dynamic replies are built next to the handlers that
// own them.
const (
	replyInternalError = "🤖💥 Maaf, sepertinya terjadi sedikit gangguan teknis di sistem saya. Silakan coba beberapa saat lagi."

	replyUnknownCommand = "🤔 Perintah tidak dikenali. Ketik *bantuan* untuk melihat daftar perintah."

	replyGreeting = "Halo %s! 👋\n\nSaya adalah DuitQ, 🤖 bot pencatat keuangan pribadi Anda. Ketik *bantuan* untuk melihat semua perintah yang bisa saya lakukan."

	replyResetWarning = "*PERINGATAN KERAS!* ⚠️\n\n" +
		"Anda akan menghapus *SEMUA DATA TRANSAKSI* Anda secara permanen. Tindakan ini *TIDAK BISA DIBATALKAN*.\n\n" +
		"Jika Anda benar-benar yakin, balas pesan ini dengan kata *YA*.\n\n" +
		"Ketik *batal* atau kata lain untuk membatalkan."

	replyHelp = "Halo %s! 👋 Ini adalah daftar perintah yang bisa Anda gunakan:\n\n" +
		"*1. Mencatat Transaksi* 📝\n" +
		"Gunakan format: `kategori nominal [catatan]`\n" +
		"Contoh:\n" +
		"  • `makanan 15000 nasi padang`\n" +
		"  • `gaji 5jt` atau `gaji 1,5jt`\n" +
		"  • `jajan 12500` atau `jajan 12,5k`\n\n" +
		"*2. Cek Laporan Keuangan* 📈\n" +
		"Gunakan format: `cek [periode] [opsi]`\n" +
		"Periode: `harian`, `mingguan`, `bulanan`, `tahunan`\n" +
		"Contoh:\n" +
		"  • `cek harian`\n" +
		"  • `cek bulanan mei 2024`\n\n" +
		"*3. Ubah Transaksi Terakhir* ✏️\n" +
		"Ketik: `edit` atau `ubah`\n\n" +
		"*4. Hapus Transaksi* 🗑️\n" +
		"Ketik: `hapus` untuk memilih transaksi bulan ini yang akan dihapus.\n\n" +
		"*5. Reset Semua Data* ⚠️\n" +
		"Ketik: `reset` untuk menghapus *SEMUA* data transaksi Anda secara permanen. Gunakan dengan sangat hati-hati!\n\n" +
		"---\n\n" +
		"*KATEGORI PEMASUKAN* 📥\n%s\n\n" +
		"*KATEGORI PENGELUARAN* 📤\n%s"
)
